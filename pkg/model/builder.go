package model

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

// Builder assembles a Board. It is not safe for concurrent use, and must
// not be used after Build.
type Builder struct {
	b        *Board
	netShape map[string]map[ShapeID]bool
	built    bool
}

// NewBuilder starts an empty board.
func NewBuilder(format records.Format, unit geom.Unit, yDown bool, meta Metadata) *Builder {
	return &Builder{
		b: &Board{
			format:         format,
			unit:           unit,
			yDown:          yDown,
			metadata:       meta,
			layerIndex:     make(map[string]int),
			componentIndex: make(map[string]int),
			netIndex:       make(map[string]int),
			byLayer:        make(map[string][]ShapeID),
		},
		netShape: make(map[string]map[ShapeID]bool),
	}
}

// AddLayer adds a layer. Adding an id twice keeps the first.
func (bl *Builder) AddLayer(l Layer) {
	if _, ok := bl.b.layerIndex[l.ID]; ok {
		return
	}
	bl.b.layerIndex[l.ID] = len(bl.b.layers)
	bl.b.layers = append(bl.b.layers, l)
}

// HasLayer reports whether a layer id was added.
func (bl *Builder) HasLayer(id string) bool {
	_, ok := bl.b.layerIndex[id]
	return ok
}

// AddNet declares a net. Nets named by shapes are declared implicitly.
func (bl *Builder) AddNet(name string) {
	if name == "" {
		return
	}
	if _, ok := bl.b.netIndex[name]; ok {
		return
	}
	bl.b.netIndex[name] = len(bl.b.nets)
	bl.b.nets = append(bl.b.nets, Net{Name: name, Shapes: []ShapeID{}})
	bl.netShape[name] = make(map[ShapeID]bool)
}

// AddShape stores a shape and returns its id. The shape's layer must have
// been added, or be empty.
func (bl *Builder) AddShape(s Shape) (ShapeID, error) {
	if s.Primitive == nil {
		return 0, fmt.Errorf("shape has no geometry")
	}
	if s.Layer != "" && !bl.HasLayer(s.Layer) {
		return 0, fmt.Errorf("shape on undeclared layer %q", s.Layer)
	}
	id := ShapeID(len(bl.b.shapes))
	s.ID = id
	bl.b.shapes = append(bl.b.shapes, s)
	bl.b.byLayer[s.Layer] = append(bl.b.byLayer[s.Layer], id)
	if s.Net != "" {
		bl.AddNet(s.Net)
		set := bl.netShape[s.Net]
		if !set[id] {
			set[id] = true
			i := bl.b.netIndex[s.Net]
			bl.b.nets[i].Shapes = append(bl.b.nets[i].Shapes, id)
		}
	}
	return id, nil
}

// AddComponent stores a component. Its Shapes must already be added.
func (bl *Builder) AddComponent(c Component) error {
	if c.ID == "" {
		return fmt.Errorf("component %q has no id", c.Ref)
	}
	if _, dup := bl.b.componentIndex[c.ID]; dup {
		return fmt.Errorf("duplicate component id %q", c.ID)
	}
	for _, id := range c.Shapes {
		if id < 0 || int(id) >= len(bl.b.shapes) {
			return fmt.Errorf("component %q references unknown shape %d", c.Ref, id)
		}
	}
	if c.Shapes == nil {
		c.Shapes = []ShapeID{}
	}
	bl.b.componentIndex[c.ID] = len(bl.b.components)
	bl.b.components = append(bl.b.components, c)
	return nil
}

// HasComponent reports whether a component id was added.
func (bl *Builder) HasComponent(id string) bool {
	_, ok := bl.b.componentIndex[id]
	return ok
}

// Warn records a warning.
func (bl *Builder) Warn(w records.Warning) {
	bl.b.warnings = append(bl.b.warnings, w)
}

// Build finalizes the board.
func (bl *Builder) Build() *Board {
	if bl.built {
		panic("model: Builder.Build called twice")
	}
	bl.built = true
	b := bl.b

	sort.SliceStable(b.layers, func(i, j int) bool {
		if b.layers[i].Order != b.layers[j].Order {
			return b.layers[i].Order < b.layers[j].Order
		}
		return b.layers[i].ID < b.layers[j].ID
	})
	for i, l := range b.layers {
		b.layerIndex[l.ID] = i
	}

	sortNets(b.nets)
	for i, n := range b.nets {
		b.netIndex[n.Name] = i
	}
	if b.warnings == nil {
		b.warnings = []records.Warning{}
	}
	return b
}
