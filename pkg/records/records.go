// Package records defines RawBoardRecords, the format-neutral output of the
// board parsers, together with the parse error and warning types shared by
// every stage of the load pipeline.
package records

import (
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
)

// Format identifies a board file grammar.
type Format string

const (
	FormatEagle Format = "eagle"
	FormatKiCad Format = "kicad"
)

// Side is the board face a component is mounted on.
type Side string

const (
	SideTop    Side = "top"
	SideBottom Side = "bottom"
)

// Layer is a layer declaration as it appears in the source document.
// NativeID is the format's own identifier: a number for EAGLE, a canonical
// layer name for KiCad.
type Layer struct {
	NativeID string
	Name     string
	Type     string
	Visible  bool
	// Color is a format-specific color hint, such as an EAGLE palette index.
	Color    string
	Location string
}

// Item is one piece of raw geometry. Board-level items carry absolute
// coordinates; items inside a Package are package-local. An empty Layer on a
// package item means "the placement's layer".
type Item struct {
	Layer    string
	Net      string
	Shape    geom.Primitive
	Location string
}

// Package is a named shape template instantiated by placements.
type Package struct {
	Name     string
	Library  string
	Items    []Item
	Location string
}

// Placement is a component instance referencing a Package by name.
type Placement struct {
	Ref      string
	Value    string
	Package  string
	UUID     string
	Position geom.Point
	Rotation float64
	Mirrored bool
	Side     Side
	// Layer is the native layer the component sits on.
	Layer string
	// PadNets assigns pad numbers of the instantiated package to nets.
	PadNets map[string]string
	// Texts are component-owned annotations already in board coordinates.
	Texts []Item
	// Smashed placements carry their own name and value texts in Texts, so
	// the package's placeholder texts are not drawn.
	Smashed  bool
	Location string
}

// Net is a declared electrical net.
type Net struct {
	Name   string
	Number int
}

// Metadata carries descriptive document fields.
type Metadata struct {
	Version   string `json:"version,omitempty"`
	Generator string `json:"generator,omitempty"`
	Title     string `json:"title,omitempty"`
	Date      string `json:"date,omitempty"`
	Revision  string `json:"revision,omitempty"`
	Company   string `json:"company,omitempty"`
}

// RawBoardRecords is everything a parser extracted from one document.
type RawBoardRecords struct {
	Format Format
	Unit   geom.Unit
	// YDown is set when the document's Y axis grows downwards.
	YDown bool

	Metadata   Metadata
	Layers     []Layer
	Nets       []Net
	Packages   []Package
	Placements []Placement
	// Signals are board-level copper items: tracks, vias, pours.
	Signals []Item
	// Graphics are board-level drawings that belong to no net.
	Graphics []Item
	// Texts are free board-level text items.
	Texts []Item

	Warnings []Warning
}

// Package returns the package with the given name.
func (r *RawBoardRecords) Package(name string) (*Package, bool) {
	for i := range r.Packages {
		if r.Packages[i].Name == name {
			return &r.Packages[i], true
		}
	}
	return nil, false
}

// Warn records a parse-stage warning.
func (r *RawBoardRecords) Warn(kind WarningKind, location, format string, args ...any) {
	r.Warnings = append(r.Warnings, NewWarning(kind, StageParse, location, format, args...))
}
