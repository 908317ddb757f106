package export

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var (
	// DefaultBackground is the dark substrate drawn behind the board.
	DefaultBackground = color.NRGBA{R: 16, G: 16, B: 21, A: 255}

	viaColor    = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	drillColor  = viaColor
	markerColor = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	labelColor  = viaColor
	// fallbackLayerColor is used when a layer color does not parse
	fallbackLayerColor = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
)

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Hex formats a color as "#rrggbb". Alpha is dropped.
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Lighten moves a color towards white by factor (0..1).
func Lighten(c color.NRGBA, factor float64) color.NRGBA {
	mix := func(v uint8) uint8 {
		return uint8(float64(v) + (255-float64(v))*factor)
	}
	return color.NRGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: c.A}
}

func layerColor(hex string) color.NRGBA {
	c, err := ParseColor(hex)
	if err != nil {
		return fallbackLayerColor
	}
	return c
}
