package model

import (
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

// FallbackBounds is reported when no geometry is on the requested layers.
var FallbackBounds = geom.Box{Min: geom.Pt(0, 0), Max: geom.Pt(100, 100)}

// Board is an immutable unified board.
type Board struct {
	format   records.Format
	unit     geom.Unit
	yDown    bool
	metadata Metadata

	layers     []Layer
	shapes     []Shape
	components []Component
	nets       []Net
	warnings   []records.Warning

	layerIndex     map[string]int
	componentIndex map[string]int
	netIndex       map[string]int
	byLayer        map[string][]ShapeID
}

func (b *Board) Format() records.Format { return b.format }

// Unit is the source document's coordinate unit. Coordinates are never
// converted.
func (b *Board) Unit() geom.Unit { return b.unit }

// YDown reports whether the board's Y axis grows downwards.
func (b *Board) YDown() bool { return b.yDown }

func (b *Board) Metadata() Metadata { return b.metadata }

// Layers returns the board's layers in draw order.
func (b *Board) Layers() []Layer {
	return slices.Clone(b.layers)
}

func (b *Board) Layer(id string) (Layer, bool) {
	i, ok := b.layerIndex[id]
	if !ok {
		return Layer{}, false
	}
	return b.layers[i], true
}

// Shapes returns every shape in id order.
func (b *Board) Shapes() []Shape {
	out := make([]Shape, len(b.shapes))
	for i, s := range b.shapes {
		out[i] = s.clone()
	}
	return out
}

// Shape returns a shape by id.
func (b *Board) Shape(id ShapeID) (Shape, bool) {
	if id < 0 || int(id) >= len(b.shapes) {
		return Shape{}, false
	}
	return b.shapes[id].clone(), true
}

func (b *Board) collect(ids []ShapeID) []Shape {
	out := make([]Shape, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.shapes[id].clone())
	}
	return out
}

// ShapesOnLayer returns the shapes on a canonical layer. The empty id
// selects unassigned shapes.
func (b *Board) ShapesOnLayer(id string) []Shape {
	return b.collect(b.byLayer[id])
}

// ShapesForComponent returns the shapes a component placed.
func (b *Board) ShapesForComponent(id string) []Shape {
	i, ok := b.componentIndex[id]
	if !ok {
		return []Shape{}
	}
	return b.collect(b.components[i].Shapes)
}

// ShapesForNet returns the shapes of a net. Names are matched exactly.
func (b *Board) ShapesForNet(name string) []Shape {
	i, ok := b.netIndex[name]
	if !ok {
		return []Shape{}
	}
	return b.collect(b.nets[i].Shapes)
}

// Components returns the components in document order.
func (b *Board) Components() []Component {
	out := make([]Component, len(b.components))
	for i, c := range b.components {
		out[i] = c.clone()
	}
	return out
}

func (b *Board) Component(id string) (Component, bool) {
	i, ok := b.componentIndex[id]
	if !ok {
		return Component{}, false
	}
	return b.components[i].clone(), true
}

// FindComponents returns components whose reference designator, value or
// package contains substr, ignoring case.
func (b *Board) FindComponents(substr string) []Component {
	fold := cases.Fold()
	needle := fold.String(substr)
	out := []Component{}
	for _, c := range b.components {
		for _, field := range []string{c.Ref, c.Value, c.Package} {
			if strings.Contains(fold.String(field), needle) {
				out = append(out, c.clone())
				break
			}
		}
	}
	return out
}

// Nets returns the nets sorted by name.
func (b *Board) Nets() []Net {
	out := make([]Net, len(b.nets))
	for i, n := range b.nets {
		out[i] = Net{Name: n.Name, Shapes: slices.Clone(n.Shapes)}
	}
	return out
}

// FindNets returns the nets whose name contains substr, ignoring case.
func (b *Board) FindNets(substr string) []Net {
	fold := cases.Fold()
	needle := fold.String(substr)
	out := []Net{}
	for _, n := range b.nets {
		if strings.Contains(fold.String(n.Name), needle) {
			out = append(out, Net{Name: n.Name, Shapes: slices.Clone(n.Shapes)})
		}
	}
	return out
}

// Bounds unions the geometry on the given layers, or on every layer when
// none are given. FallbackBounds is returned when nothing is there.
func (b *Board) Bounds(layerIDs ...string) geom.Box {
	box := geom.EmptyBox()
	if len(layerIDs) == 0 {
		for _, s := range b.shapes {
			box = box.Union(s.Bounds())
		}
	} else {
		for _, id := range layerIDs {
			for _, sid := range b.byLayer[id] {
				box = box.Union(b.shapes[sid].Bounds())
			}
		}
	}
	if box.IsEmpty() {
		return FallbackBounds
	}
	return box
}

// Warnings returns the non-fatal diagnostics of parsing and unification.
func (b *Board) Warnings() []records.Warning {
	return slices.Clone(b.warnings)
}

// NetNames returns the net names in sorted order.
func (b *Board) NetNames() []string {
	names := make([]string, len(b.nets))
	for i, n := range b.nets {
		names[i] = n.Name
	}
	return names
}

func (s Shape) clone() Shape {
	s.Primitive = clonePrimitive(s.Primitive)
	return s
}

// clonePrimitive copies the vertex slice of polygons; the other
// primitives are plain values.
func clonePrimitive(p geom.Primitive) geom.Primitive {
	switch v := p.(type) {
	case geom.Polygon:
		v.Points = slices.Clone(v.Points)
		return v
	case *geom.Polygon:
		c := *v
		c.Points = slices.Clone(v.Points)
		return &c
	}
	return p
}

func (c Component) clone() Component {
	c.Shapes = slices.Clone(c.Shapes)
	return c
}

func sortNets(nets []Net) {
	sort.SliceStable(nets, func(i, j int) bool { return nets[i].Name < nets[j].Name })
}
