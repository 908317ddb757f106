// Package model holds the unified, format-agnostic board model. A Board is
// built once by a Builder and is read-only afterwards; every accessor returns
// copies, so a Board may be shared between goroutines without locking.
package model

import (
	"encoding/json"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/layers"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

// ShapeID identifies a shape within one board.
type ShapeID int

// Layer is a canonical layer as resolved by the layer registry.
type Layer = layers.Layer

// Shape is one piece of absolute-coordinate geometry.
type Shape struct {
	ID ShapeID
	// Layer is a canonical layer id; empty means unassigned.
	Layer string
	// Component is the id of the placing component, empty for board-level
	// geometry.
	Component string
	// Net is the net name, empty when the shape is in no net.
	Net       string
	Primitive geom.Primitive
}

// Kind returns the primitive's variant tag.
func (s Shape) Kind() geom.Kind {
	if s.Primitive == nil {
		return ""
	}
	return s.Primitive.Kind()
}

// Bounds returns the primitive's axis-aligned bounding box.
func (s Shape) Bounds() geom.Box {
	if s.Primitive == nil {
		return geom.EmptyBox()
	}
	return s.Primitive.Bounds()
}

func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        ShapeID        `json:"id"`
		Kind      geom.Kind      `json:"kind"`
		Layer     string         `json:"layer,omitempty"`
		Component string         `json:"component,omitempty"`
		Net       string         `json:"net,omitempty"`
		Geometry  geom.Primitive `json:"geometry"`
	}{s.ID, s.Kind(), s.Layer, s.Component, s.Net, s.Primitive})
}

// Placement is where and how a component sits on the board.
type Placement struct {
	Position geom.Point   `json:"position"`
	Rotation float64      `json:"rotation"`
	Mirrored bool         `json:"mirrored"`
	Side     records.Side `json:"side"`
}

// Transform returns the package-to-board transform of the placement.
func (p Placement) Transform() geom.Transform {
	return geom.Placement(p.Position, p.Rotation, p.Mirrored)
}

// Component is a placed package instance.
type Component struct {
	ID        string    `json:"id"`
	Ref       string    `json:"ref"`
	Value     string    `json:"value,omitempty"`
	Package   string    `json:"package,omitempty"`
	Placement Placement `json:"placement"`
	Bounds    geom.Box  `json:"bounds"`
	Shapes    []ShapeID `json:"shapes"`
}

// Net is a named set of shapes.
type Net struct {
	Name   string    `json:"name"`
	Shapes []ShapeID `json:"shapes"`
}

// Metadata describes the source document.
type Metadata = records.Metadata

// Accessor is the read-only query surface consumed by renderers, search
// and export. *Board implements it.
type Accessor interface {
	Format() records.Format
	Unit() geom.Unit
	YDown() bool
	Metadata() Metadata
	Layers() []Layer
	Layer(id string) (Layer, bool)
	Shapes() []Shape
	ShapesOnLayer(id string) []Shape
	ShapesForComponent(id string) []Shape
	ShapesForNet(name string) []Shape
	Components() []Component
	Component(id string) (Component, bool)
	FindComponents(substr string) []Component
	Nets() []Net
	FindNets(substr string) []Net
	Bounds(layerIDs ...string) geom.Box
	Warnings() []records.Warning
}

var _ Accessor = (*Board)(nil)
