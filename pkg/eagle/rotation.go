package eagle

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// rotLexer tokenizes EAGLE rotation specs such as "R90", "MR180" or "SMR45.5".
var rotLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Number", Pattern: `[-+]?[0-9]+(\.[0-9]+)?`},
	{Name: "Flag", Pattern: `[SMR]`},
})

// Rotation is a decoded EAGLE rot attribute.
// Spin only affects how text reads on screen and is kept for completeness.
type Rotation struct {
	Spin   bool    `parser:"@\"S\"?"`
	Mirror bool    `parser:"@\"M\"?"`
	Angle  float64 `parser:"\"R\" @Number"`
}

var rotParser = participle.MustBuild[Rotation](
	participle.Lexer(rotLexer),
	participle.Elide("Whitespace"),
)

// ParseRotation decodes a rot attribute. An empty string is R0.
func ParseRotation(s string) (Rotation, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rotation{}, nil
	}
	rot, err := rotParser.ParseString("", s)
	if err != nil {
		return Rotation{}, fmt.Errorf("invalid rotation %q: %w", s, err)
	}
	return *rot, nil
}

func (r Rotation) String() string {
	var b strings.Builder
	if r.Spin {
		b.WriteByte('S')
	}
	if r.Mirror {
		b.WriteByte('M')
	}
	fmt.Fprintf(&b, "R%g", r.Angle)
	return b.String()
}

// Placed returns the counter-clockwise angle to apply after mirroring about
// the local Y axis. EAGLE turns mirrored parts the other way, so the angle
// is negated when Mirror is set.
func (r Rotation) Placed() float64 {
	if r.Mirror {
		return -r.Angle
	}
	return r.Angle
}
