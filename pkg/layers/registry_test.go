package layers

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

var hexColor = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func TestResolveKnown(t *testing.T) {
	r := Default()

	tests := []struct {
		native string
		format records.Format
		id     string
		color  string
	}{
		{"1", records.FormatEagle, "top_copper", "#FF0000"},
		{"16", records.FormatEagle, "bottom_copper", "#0000FF"},
		{"21", records.FormatEagle, "top_silk", "#FFFFFF"},
		{"F.Cu", records.FormatKiCad, "top_copper", "#C83434"},
		{"B.Cu", records.FormatKiCad, "bottom_copper", "#4D7FC4"},
		{"In2.Cu", records.FormatKiCad, "inner2_copper", "#CE7D2C"},
		{"Edge.Cuts", records.FormatKiCad, "outline", "#D0D2CD"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format)+"/"+tt.native, func(t *testing.T) {
			l, ok := r.Resolve(tt.native, tt.format)
			require.True(t, ok)
			assert.Equal(t, tt.id, l.ID)
			assert.Equal(t, tt.native, l.NativeID)
			assert.Equal(t, tt.color, l.Color)
			assert.False(t, l.Synthesized)
		})
	}
}

func TestResolveUnknownIsStable(t *testing.T) {
	r := Default()

	a, ok := r.Resolve("200", records.FormatEagle)
	assert.False(t, ok)
	b, _ := r.Resolve("200", records.FormatEagle)
	assert.Equal(t, a, b)
	assert.Equal(t, "eagle:200", a.ID)
	assert.True(t, a.Synthesized)
	assert.True(t, a.Visible)
	assert.Regexp(t, hexColor, a.Color)

	// a second registry agrees
	c, _ := Default().Resolve("200", records.FormatEagle)
	assert.Equal(t, a, c)

	// the same native id in another format is another layer
	k, _ := r.Resolve("200", records.FormatKiCad)
	assert.NotEqual(t, a.ID, k.ID)
}

func TestResolveDeclared(t *testing.T) {
	r := Default()

	l, known := r.ResolveDeclared(records.Layer{NativeID: "1", Name: "Top", Color: "2"}, records.FormatEagle)
	assert.True(t, known)
	assert.Equal(t, "#00FF00", l.Color)

	l, known = r.ResolveDeclared(records.Layer{NativeID: "150", Name: "Mechanical"}, records.FormatEagle)
	assert.False(t, known)
	assert.Equal(t, "Mechanical", l.Name)
	assert.Equal(t, "eagle:150", l.ID)
}

func TestFlip(t *testing.T) {
	r := Default()
	assert.Equal(t, "16", r.Flip("1", records.FormatEagle))
	assert.Equal(t, "1", r.Flip("16", records.FormatEagle))
	assert.Equal(t, "22", r.Flip("21", records.FormatEagle))
	assert.Equal(t, "30", r.Flip("29", records.FormatEagle))
	assert.Equal(t, "17", r.Flip("17", records.FormatEagle))
	assert.Equal(t, "B.SilkS", r.Flip("F.SilkS", records.FormatKiCad))
	assert.Equal(t, "999", r.Flip("999", records.FormatEagle))
}

func TestLoadRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "formats: ["},
		{"empty", "formats: []"},
		{"bad color", `formats:
  - format: eagle
    layers:
      - {native: "1", id: top_copper, name: Top, color: red}`},
		{"unknown format", `formats:
  - format: gerber
    layers:
      - {native: "1", id: top_copper, name: Top, color: "#FF0000"}`},
		{"duplicate native", `formats:
  - format: eagle
    layers:
      - {native: "1", id: a, name: A, color: "#FF0000"}
      - {native: "1", id: b, name: B, color: "#FF0000"}`},
		{"dangling flip", `formats:
  - format: eagle
    layers:
      - {native: "1", id: a, name: A, color: "#FF0000", flip: "16"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestConcurrentResolve(t *testing.T) {
	r := Default()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range []string{"1", "16", "77", "F.Cu"} {
				r.Resolve(id, records.FormatEagle)
				r.Resolve(id, records.FormatKiCad)
			}
		}()
	}
	wg.Wait()
}

func TestFallbackColor(t *testing.T) {
	for _, id := range []string{"0", "99", "Foo.User", ""} {
		c := FallbackColor(id, records.FormatKiCad)
		assert.Regexp(t, hexColor, c)
		assert.Equal(t, c, FallbackColor(id, records.FormatKiCad))
	}
}
