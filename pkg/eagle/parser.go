// Package eagle reads EAGLE XML board files (.brd) into format-neutral raw
// board records. Library packages become templates, elements become
// placements and signals become board-level copper with net names.
package eagle

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

// Native layer numbers the parser assigns itself.
const (
	LayerTop     = "1"
	LayerBottom  = "16"
	LayerPads    = "17"
	LayerVias    = "18"
	LayerOutline = "20"
	LayerHoles   = "45"
)

// Segments used to approximate a curved polygon edge.
const curveSegments = 16

// parser carries the state of one parse call. The first malformed
// attribute is kept in err and every later conversion becomes a no-op.
type parser struct {
	recs     *records.RawBoardRecords
	err      error
	elements map[string]int
}

// ParseFile reads and parses an EAGLE board file.
func ParseFile(filename string) (*records.RawBoardRecords, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// ParseString parses a board held in memory.
func ParseString(s string) (*records.RawBoardRecords, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads an EAGLE board. Documents that are not XML, whose root is not
// <eagle>, that hold no <board>, or that lack a mandatory coordinate or layer
// are rejected with a *records.MalformedDocumentError.
func Parse(r io.Reader) (*records.RawBoardRecords, error) {
	doc, err := decode(r)
	if err != nil {
		return nil, err
	}
	if doc.Drawing == nil {
		return nil, records.Malformed(records.FormatEagle, "eagle", "missing <drawing>")
	}
	if doc.Drawing.Board == nil {
		what := "no <board> element"
		if doc.Drawing.Schematic != nil {
			what += " (schematic file)"
		} else if doc.Drawing.Library != nil {
			what += " (library file)"
		}
		return nil, records.Malformed(records.FormatEagle, "eagle/drawing", what)
	}

	p := &parser{
		recs: &records.RawBoardRecords{
			Format: records.FormatEagle,
			Unit:   geom.UnitMillimeter,
		},
		elements: make(map[string]int),
	}
	p.recs.Metadata.Version = doc.Version
	p.recs.Metadata.Generator = "EAGLE"

	p.parseLayers(doc.Drawing.Layers)
	board := doc.Drawing.Board
	p.parseMetadata(board)
	p.parseLibraries(board.Libraries)
	p.parsePlain(&board.Plain)
	p.parseElements(board.Elements)
	p.parseSignals(board.Signals)
	if p.err != nil {
		return nil, p.err
	}
	return p.recs, nil
}

// decode finds the root element and unmarshals it.
func decode(r io.Reader) (*xmlDocument, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, records.Malformed(records.FormatEagle, "", "no root element")
		}
		if err != nil {
			return nil, xmlError(err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "eagle" {
			return nil, records.Malformed(records.FormatEagle, start.Name.Local, "not an EAGLE file: expected <eagle>, got <%s>", start.Name.Local)
		}
		var doc xmlDocument
		if err := dec.DecodeElement(&doc, &start); err != nil {
			return nil, xmlError(err)
		}
		return &doc, nil
	}
}

func xmlError(err error) error {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return records.Malformed(records.FormatEagle, fmt.Sprintf("line %d", se.Line), "invalid XML").Wrap(err)
	}
	return fmt.Errorf("failed to read XML: %w", err)
}

func (p *parser) parseLayers(layers []xmlLayer) {
	for i, l := range layers {
		loc := fmt.Sprintf("eagle/drawing/layers/layer[%d]", i+1)
		n := p.integer(l.Number, loc, "number")
		if p.err != nil {
			return
		}
		typ := ""
		if n >= 1 && n <= 16 {
			typ = "signal"
		}
		p.recs.Layers = append(p.recs.Layers, records.Layer{
			NativeID: strconv.Itoa(n),
			Name:     l.Name,
			Type:     typ,
			Visible:  l.Visible != "no",
			Color:    l.Color,
			Location: loc,
		})
	}
}

// parseMetadata maps the conventional global attributes.
func (p *parser) parseMetadata(b *xmlBoard) {
	meta := &p.recs.Metadata
	for _, a := range b.Attributes {
		switch strings.ToUpper(a.Name) {
		case "TITLE":
			meta.Title = a.Value
		case "DATE":
			meta.Date = a.Value
		case "REV", "REVISION":
			meta.Revision = a.Value
		case "COMPANY", "AUTHOR":
			if meta.Company == "" {
				meta.Company = a.Value
			}
		}
	}
}

// packageKey names a template. Managed libraries may share a name, so the
// urn is part of the key when present.
func packageKey(library, urn, pkg string) string {
	if urn != "" {
		library += "@" + urn
	}
	return library + ":" + pkg
}

func (p *parser) parseLibraries(libs []xmlLibrary) {
	for _, lib := range libs {
		for _, pkg := range lib.Packages {
			loc := fmt.Sprintf("board/libraries/library[%s]/package[%s]", lib.Name, pkg.Name)
			tpl := records.Package{
				Name:     packageKey(lib.Name, lib.URN, pkg.Name),
				Library:  lib.Name,
				Location: loc,
			}
			tpl.Items = p.graphics(&pkg.xmlGraphics, loc, true)
			if p.err != nil {
				return
			}
			p.recs.Packages = append(p.recs.Packages, tpl)
		}
	}
}

func (p *parser) parsePlain(plain *xmlGraphics) {
	items := p.graphics(plain, "board/plain", false)
	for _, it := range items {
		if _, ok := it.Shape.(geom.Text); ok {
			p.recs.Texts = append(p.recs.Texts, it)
			continue
		}
		p.recs.Graphics = append(p.recs.Graphics, it)
	}
}

// graphics converts the shape children of a <plain> or <package>.
func (p *parser) graphics(g *xmlGraphics, loc string, inPackage bool) []records.Item {
	var items []records.Item
	add := func(layer string, shape geom.Primitive, at string) {
		if shape != nil {
			items = append(items, records.Item{Layer: layer, Shape: shape, Location: at})
		}
	}

	for i, w := range g.Wires {
		at := fmt.Sprintf("%s/wire[%d]", loc, i+1)
		layer, shape := p.wire(w, at)
		add(layer, shape, at)
	}
	for i, c := range g.Circles {
		at := fmt.Sprintf("%s/circle[%d]", loc, i+1)
		width := p.optional(c.Width, at, "width", 0)
		circle := geom.Circle{
			Center: p.point(c.X, c.Y, at),
			Radius: p.number(c.Radius, at, "radius"),
			Width:  width,
			Filled: width == 0,
		}
		add(p.layer(c.Layer, at), circle, at)
	}
	for i, r := range g.Rectangles {
		at := fmt.Sprintf("%s/rectangle[%d]", loc, i+1)
		a := p.pointN(r.X1, r.Y1, at, "1")
		b := p.pointN(r.X2, r.Y2, at, "2")
		rect := geom.RectFromCorners(a, b, 0, true)
		rect.Rotation = p.rotation(r.Rot, at).Angle
		add(p.layer(r.Layer, at), rect, at)
	}
	for i, poly := range g.Polygons {
		at := fmt.Sprintf("%s/polygon[%d]", loc, i+1)
		layer := p.layer(poly.Layer, at)
		filled := inPackage && layer != LayerOutline
		add(layer, p.polygon(poly, at, filled), at)
	}
	for i, t := range g.Texts {
		at := fmt.Sprintf("%s/text[%d]", loc, i+1)
		rot := p.rotation(t.Rot, at)
		text := geom.Text{
			Content:  strings.TrimSpace(t.Content),
			Origin:   p.point(t.X, t.Y, at),
			Size:     p.optional(t.Size, at, "size", 1.27),
			Rotation: rot.Angle,
			Mirrored: rot.Mirror,
		}
		add(p.layer(t.Layer, at), text, at)
	}
	for i, h := range g.Holes {
		at := fmt.Sprintf("%s/hole[%d]", loc, i+1)
		hole := geom.Circle{
			Center: p.point(h.X, h.Y, at),
			Radius: p.number(h.Drill, at, "drill") / 2,
		}
		add(LayerHoles, hole, at)
	}
	for i, pad := range g.Pads {
		at := fmt.Sprintf("%s/pad[%s]", loc, pad.Name)
		if pad.Name == "" {
			at = fmt.Sprintf("%s/pad[%d]", loc, i+1)
		}
		add(LayerPads, p.pad(pad, at), at)
	}
	for i, smd := range g.SMDs {
		at := fmt.Sprintf("%s/smd[%s]", loc, smd.Name)
		if smd.Name == "" {
			at = fmt.Sprintf("%s/smd[%d]", loc, i+1)
		}
		add(p.layer(smd.Layer, at), p.smd(smd, at), at)
	}
	for _, o := range g.Other {
		p.recs.Warn(records.UnsupportedConstruct, loc+"/"+o.XMLName.Local, "<%s> is not supported", o.XMLName.Local)
	}
	return items
}

// wire converts a straight or curved wire.
func (p *parser) wire(w xmlWire, at string) (string, geom.Primitive) {
	start := p.pointN(w.X1, w.Y1, at, "1")
	end := p.pointN(w.X2, w.Y2, at, "2")
	width := p.optional(w.Width, at, "width", 0)
	layer := p.layer(w.Layer, at)
	curve := p.optional(w.Curve, at, "curve", 0)
	if curve != 0 {
		return layer, geom.ArcFromChord(start, end, curve, width)
	}
	return layer, geom.Segment{Start: start, End: end, Width: width}
}

// polygon converts a vertex list. A vertex curve bends the edge that starts
// at that vertex; the arc is flattened into the outline.
func (p *parser) polygon(poly xmlPolygon, at string, filled bool) geom.Primitive {
	width := p.optional(poly.Width, at, "width", 0)
	var pts []geom.Point
	n := len(poly.Vertices)
	for i, v := range poly.Vertices {
		vat := fmt.Sprintf("%s/vertex[%d]", at, i+1)
		pt := p.point(v.X, v.Y, vat)
		pts = append(pts, pt)
		curve := p.optional(v.Curve, vat, "curve", 0)
		if curve == 0 || p.err != nil {
			continue
		}
		next := poly.Vertices[(i+1)%n]
		end := p.point(next.X, next.Y, vat)
		arc := geom.ArcFromChord(pt, end, curve, 0)
		mid := arc.Points(curveSegments)
		// drop both chord ends; they are emitted as vertices
		pts = append(pts, mid[1:len(mid)-1]...)
	}
	if p.err != nil {
		return nil
	}
	if len(pts) < 3 {
		p.recs.Warn(records.UnsupportedConstruct, at, "polygon with %d vertices skipped", len(pts))
		return nil
	}
	return geom.Polygon{Points: pts, Width: width, Filled: filled}
}

// padShapes maps EAGLE through-hole pad shapes.
var padShapes = map[string]geom.PadShape{
	"":        geom.PadCircle,
	"round":   geom.PadCircle,
	"square":  geom.PadRect,
	"octagon": geom.PadOctagon,
	"long":    geom.PadOval,
	"offset":  geom.PadOval,
}

func (p *parser) pad(x xmlPad, at string) geom.Primitive {
	drill := p.number(x.Drill, at, "drill")
	// EAGLE derives a zero diameter from the design rules' restring.
	d := p.optional(x.Diameter, at, "diameter", 0)
	if d == 0 {
		d = drill * 1.5
	}
	rot := p.rotation(x.Rot, at)
	shape, ok := padShapes[x.Shape]
	if !ok {
		p.recs.Warn(records.UnsupportedConstruct, at, "pad shape %q drawn as round", x.Shape)
		shape = geom.PadCircle
	}
	pad := geom.Pad{
		Number:   x.Name,
		Center:   p.point(x.X, x.Y, at),
		Size:     geom.Size{W: d, H: d},
		Shape:    shape,
		Rotation: rot.Angle,
		Drill:    drill,
		Mirrored: rot.Mirror,
	}
	switch x.Shape {
	case "long":
		pad.Size.W = 2 * d
	case "offset":
		pad.Size.W = 2 * d
		// the copper extends to one side of the drill
		pad.Center = pad.Center.Add(geom.Rotate(rot.Angle).ApplyVector(geom.Pt(d/2, 0)))
	}
	return pad
}

func (p *parser) smd(x xmlSMD, at string) geom.Primitive {
	rot := p.rotation(x.Rot, at)
	shape := geom.PadRect
	if p.optional(x.Roundness, at, "roundness", 0) > 0 {
		shape = geom.PadRoundRect
	}
	return geom.Pad{
		Number:   x.Name,
		Center:   p.point(x.X, x.Y, at),
		Size:     geom.Size{W: p.number(x.DX, at, "dx"), H: p.number(x.DY, at, "dy")},
		Shape:    shape,
		Rotation: rot.Angle,
		Mirrored: rot.Mirror,
	}
}

func (p *parser) parseElements(elements []xmlElement) {
	for _, e := range elements {
		loc := fmt.Sprintf("board/elements/element[%s]", e.Name)
		rot := p.rotation(e.Rot, loc)
		pl := records.Placement{
			Ref:      e.Name,
			Value:    e.Value,
			Package:  packageKey(e.Library, e.LibraryURN, e.Package),
			Position: p.point(e.X, e.Y, loc),
			Rotation: rot.Placed(),
			Mirrored: rot.Mirror,
			Side:     records.SideTop,
			Layer:    LayerTop,
			Smashed:  e.Smashed == "yes",
			PadNets:  make(map[string]string),
			Location: loc,
		}
		if rot.Mirror {
			pl.Side = records.SideBottom
			pl.Layer = LayerBottom
		}
		for _, a := range e.Attributes {
			if it, ok := p.attribute(e, a, loc); ok {
				pl.Texts = append(pl.Texts, it)
			}
		}
		if p.err != nil {
			return
		}
		p.elements[e.Name] = len(p.recs.Placements)
		p.recs.Placements = append(p.recs.Placements, pl)
	}
}

// attribute converts a smashed element attribute into an absolute text.
// Attributes without a position are not drawn.
func (p *parser) attribute(e xmlElement, a xmlAttribute, loc string) (records.Item, bool) {
	if a.X == "" || a.Y == "" || a.Display == "off" {
		return records.Item{}, false
	}
	at := fmt.Sprintf("%s/attribute[%s]", loc, a.Name)
	value := a.Value
	switch strings.ToUpper(a.Name) {
	case "NAME":
		value = e.Name
	case "VALUE":
		if value == "" {
			value = e.Value
		}
	}
	var content string
	switch a.Display {
	case "name":
		content = a.Name
	case "both":
		content = a.Name + "=" + value
	default:
		content = value
	}
	rot := p.rotation(a.Rot, at)
	text := geom.Text{
		Content:  content,
		Origin:   p.point(a.X, a.Y, at),
		Size:     p.optional(a.Size, at, "size", 1.27),
		Rotation: rot.Placed(),
		Mirrored: rot.Mirror,
	}
	return records.Item{Layer: p.layer(a.Layer, at), Shape: text, Location: at}, p.err == nil
}

func (p *parser) parseSignals(signals []xmlSignal) {
	for _, s := range signals {
		if p.err != nil {
			return
		}
		loc := fmt.Sprintf("board/signals/signal[%s]", s.Name)
		p.recs.Nets = append(p.recs.Nets, records.Net{Name: s.Name})

		for _, c := range s.ContactRefs {
			i, ok := p.elements[c.Element]
			if !ok {
				p.recs.Warn(records.UnresolvedReference, loc+"/contactref",
					"contact %s.%s refers to an unknown element", c.Element, c.Pad)
				continue
			}
			p.recs.Placements[i].PadNets[c.Pad] = s.Name
		}
		for i, w := range s.Wires {
			at := fmt.Sprintf("%s/wire[%d]", loc, i+1)
			layer, shape := p.wire(w, at)
			p.signal(layer, s.Name, shape, at)
		}
		for i, v := range s.Vias {
			at := fmt.Sprintf("%s/via[%d]", loc, i+1)
			drill := p.number(v.Drill, at, "drill")
			d := p.optional(v.Diameter, at, "diameter", 0)
			if d == 0 {
				d = drill * 1.5
			}
			via := geom.Via{Center: p.point(v.X, v.Y, at), Diameter: d, Drill: drill}
			p.signal(LayerVias, s.Name, via, at)
		}
		for i, poly := range s.Polygons {
			at := fmt.Sprintf("%s/polygon[%d]", loc, i+1)
			layer := p.layer(poly.Layer, at)
			if shape := p.polygon(poly, at, layer != LayerOutline); shape != nil {
				p.signal(layer, s.Name, shape, at)
			}
		}
		for _, o := range s.Other {
			p.recs.Warn(records.UnsupportedConstruct, loc+"/"+o.XMLName.Local, "<%s> is not supported", o.XMLName.Local)
		}
	}
}

func (p *parser) signal(layer, net string, shape geom.Primitive, at string) {
	if p.err != nil {
		return
	}
	p.recs.Signals = append(p.recs.Signals, records.Item{Layer: layer, Net: net, Shape: shape, Location: at})
}

// fail records the first malformed attribute.
func (p *parser) fail(at, msg string, args ...any) {
	if p.err == nil {
		p.err = records.Malformed(records.FormatEagle, at, msg, args...)
	}
}

// number parses a mandatory numeric attribute.
func (p *parser) number(v, at, attr string) float64 {
	if p.err != nil {
		return 0
	}
	if v == "" {
		p.fail(at, "missing required attribute %q", attr)
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		p.fail(at, "attribute %q is not numeric: %q", attr, v)
		return 0
	}
	return f
}

// optional parses a numeric attribute that may be absent.
func (p *parser) optional(v, at, attr string, def float64) float64 {
	if v == "" {
		return def
	}
	return p.number(v, at, attr)
}

func (p *parser) integer(v, at, attr string) int {
	f := p.number(v, at, attr)
	if p.err == nil && f != float64(int(f)) {
		p.fail(at, "attribute %q is not an integer: %q", attr, v)
	}
	return int(f)
}

func (p *parser) point(x, y, at string) geom.Point {
	return p.pointN(x, y, at, "")
}

// pointN reads a numbered coordinate pair such as x1/y1.
func (p *parser) pointN(x, y, at, n string) geom.Point {
	return geom.Point{X: p.number(x, at, "x"+n), Y: p.number(y, at, "y"+n)}
}

// layer validates a mandatory layer number and returns it as a native id.
func (p *parser) layer(v, at string) string {
	return strconv.Itoa(p.integer(v, at, "layer"))
}

func (p *parser) rotation(v, at string) Rotation {
	if p.err != nil {
		return Rotation{}
	}
	rot, err := ParseRotation(v)
	if err != nil {
		p.fail(at, "%v", err)
	}
	return rot
}
