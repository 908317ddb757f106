// Package layers maps each board format's native layer identifiers onto the
// canonical layer set shared by every board model. The mapping tables are
// static YAML configuration; unknown identifiers are never dropped but get a
// synthesized layer with a stable fallback color.
package layers

import (
	_ "embed"
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

//go:embed tables.yaml
var defaultTables []byte

// Layer is a canonical board layer.
type Layer struct {
	ID          string         `json:"id"`
	NativeID    string         `json:"native_id"`
	Format      records.Format `json:"format"`
	Name        string         `json:"name"`
	Color       string         `json:"color"`
	Visible     bool           `json:"visible"`
	Synthesized bool           `json:"synthesized,omitempty"`
	// Order is the draw order, bottom-most first.
	Order int `json:"order"`
}

type tableFile struct {
	Formats []formatTable `yaml:"formats" validate:"required,min=1,dive"`
}

type formatTable struct {
	Format  records.Format    `yaml:"format" validate:"required,oneof=eagle kicad"`
	Palette map[string]string `yaml:"palette" validate:"dive,keys,required,endkeys,hexcolor"`
	Layers  []layerEntry      `yaml:"layers" validate:"required,min=1,dive"`
}

type layerEntry struct {
	Native  string `yaml:"native" validate:"required"`
	ID      string `yaml:"id" validate:"required"`
	Name    string `yaml:"name" validate:"required"`
	Color   string `yaml:"color" validate:"required,hexcolor"`
	Visible bool   `yaml:"visible"`
	Flip    string `yaml:"flip"`
}

type table struct {
	palette  map[string]string
	byNative map[string]Layer
	flip     map[string]string
}

// synthesizedOrder places unknown layers above every tabled layer.
const synthesizedOrder = 1 << 20

// Registry resolves native layer ids. It is immutable once built and safe
// for concurrent use.
type Registry struct {
	tables map[records.Format]*table
}

// Default returns a registry built from the embedded tables.
func Default() *Registry {
	r, err := Load(defaultTables)
	if err != nil {
		panic(fmt.Sprintf("embedded layer tables: %v", err))
	}
	return r
}

// Load builds a registry from a YAML table document.
func Load(data []byte) (*Registry, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("decode layer tables: %w", err)
	}
	if err := validator.New().Struct(tf); err != nil {
		return nil, fmt.Errorf("validate layer tables: %w", err)
	}

	r := &Registry{tables: make(map[records.Format]*table, len(tf.Formats))}
	for _, ft := range tf.Formats {
		if _, dup := r.tables[ft.Format]; dup {
			return nil, fmt.Errorf("format %s listed twice", ft.Format)
		}
		t := &table{
			palette:  ft.Palette,
			byNative: make(map[string]Layer, len(ft.Layers)),
			flip:     make(map[string]string),
		}
		ids := make(map[string]string, len(ft.Layers))
		for i, e := range ft.Layers {
			if _, dup := t.byNative[e.Native]; dup {
				return nil, fmt.Errorf("%s: native layer %q listed twice", ft.Format, e.Native)
			}
			if prev, dup := ids[e.ID]; dup {
				return nil, fmt.Errorf("%s: canonical id %q used by %q and %q", ft.Format, e.ID, prev, e.Native)
			}
			ids[e.ID] = e.Native
			t.byNative[e.Native] = Layer{
				ID:       e.ID,
				NativeID: e.Native,
				Format:   ft.Format,
				Name:     e.Name,
				Color:    strings.ToUpper(e.Color),
				Visible:  e.Visible,
				Order:    i,
			}
			if e.Flip != "" {
				t.flip[e.Native] = e.Flip
			}
		}
		for from, to := range t.flip {
			if _, ok := t.byNative[to]; !ok {
				return nil, fmt.Errorf("%s: layer %q flips to unknown layer %q", ft.Format, from, to)
			}
		}
		r.tables[ft.Format] = t
	}
	return r, nil
}

// Resolve returns the canonical layer for a native id. The boolean is false
// when the id is not in the tables and the layer was synthesized.
func (r *Registry) Resolve(nativeID string, format records.Format) (Layer, bool) {
	if t, ok := r.tables[format]; ok {
		if l, ok := t.byNative[nativeID]; ok {
			return l, true
		}
	}
	return Synthesize(nativeID, format), false
}

// ResolveDeclared resolves a layer declaration from a document. Declared
// names label synthesized layers, and an EAGLE color index overrides the
// tabled color.
func (r *Registry) ResolveDeclared(decl records.Layer, format records.Format) (Layer, bool) {
	l, known := r.Resolve(decl.NativeID, format)
	if !known && decl.Name != "" {
		l.Name = decl.Name
	}
	if decl.Color != "" {
		if c, ok := r.PaletteColor(format, decl.Color); ok {
			l.Color = c
		}
	}
	return l, known
}

// Flip returns the native id of the layer on the opposite board side, or the
// id itself when the layer has no twin.
func (r *Registry) Flip(nativeID string, format records.Format) string {
	if t, ok := r.tables[format]; ok {
		if to, ok := t.flip[nativeID]; ok {
			return to
		}
	}
	return nativeID
}

// PaletteColor maps a format-specific color index to a hex color.
func (r *Registry) PaletteColor(format records.Format, index string) (string, bool) {
	t, ok := r.tables[format]
	if !ok {
		return "", false
	}
	c, ok := t.palette[index]
	return strings.ToUpper(c), ok
}

// Synthesize builds the layer used for an unrecognized native id. The same
// id always yields the same layer.
func Synthesize(nativeID string, format records.Format) Layer {
	return Layer{
		ID:          fmt.Sprintf("%s:%s", format, nativeID),
		NativeID:    nativeID,
		Format:      format,
		Name:        fmt.Sprintf("Layer %s", nativeID),
		Color:       FallbackColor(nativeID, format),
		Visible:     true,
		Synthesized: true,
		Order:       synthesizedOrder,
	}
}

// FallbackColor derives a saturated color from a hash of the layer id.
func FallbackColor(nativeID string, format records.Format) string {
	h := xxhash.Sum64String(string(format) + "/" + nativeID)
	hue := float64(h % 360)
	return hsvHex(hue, 0.65, 0.95)
}

func hsvHex(h, s, v float64) string {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	to8 := func(f float64) uint8 { return uint8(math.Round((f + m) * 255)) }
	return fmt.Sprintf("#%02X%02X%02X", to8(r), to8(g), to8(b))
}
