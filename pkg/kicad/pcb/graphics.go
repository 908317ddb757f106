package pcb

import (
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

// parseGraphic reads a gr_* or fp_* drawing. kind is the name without its
// prefix: line, arc, circle, rect, poly or curve. Curves are skipped with a
// warning and yield a nil item.
func (p *parser) parseGraphic(node kicadsexp.Sexp, kind string) (*records.Item, error) {
	layer, err := requiredLayer(node, kind)
	if err != nil {
		return nil, err
	}
	width := sexp.GetStrokeWidth(node)

	var shape geom.Primitive
	switch kind {
	case "line":
		// (gr_line (start x y) (end x y) (stroke (width w)) (layer "Edge.Cuts"))
		start, end, err := startEnd(node)
		if err != nil {
			return nil, malformed(node, kind, err)
		}
		shape = geom.Segment{Start: start, End: end, Width: width}

	case "rect":
		start, end, err := startEnd(node)
		if err != nil {
			return nil, malformed(node, kind, err)
		}
		shape = geom.RectFromCorners(start, end, width, sexp.IsFilled(node))

	case "circle":
		// (gr_circle (center x y) (end x y) ...), end is a point on the circle
		center, err := sexp.GetPoint(node, "center")
		if err != nil {
			return nil, malformed(node, kind, err)
		}
		end, err := sexp.GetPoint(node, "end")
		if err != nil {
			return nil, malformed(node, kind, err)
		}
		shape = geom.Circle{Center: center, Radius: center.Distance(end), Width: width, Filled: sexp.IsFilled(node)}

	case "arc":
		start, end, err := startEnd(node)
		if err != nil {
			return nil, malformed(node, kind, err)
		}
		if _, found := sexp.FindNode(node, "mid"); found {
			// (gr_arc (start x y) (mid x y) (end x y) ...)
			mid, err := sexp.GetPoint(node, "mid")
			if err != nil {
				return nil, malformed(node, kind, err)
			}
			shape = geom.ArcThrough(start, mid, end, width)
		} else {
			// KiCad 5: (gr_arc (start cx cy) (end x y) (angle sweep) ...)
			// start is the center and end the first arc point
			sweep, ok := sexp.ChildFloat(node, "angle")
			if !ok {
				return nil, records.Malformed(records.FormatKiCad, location(node), "arc: missing 'mid' or 'angle'")
			}
			shape = geom.ArcAround(start, end, sweep, width)
		}

	case "poly":
		pts, err := sexp.GetPoints(node)
		if err != nil {
			return nil, malformed(node, kind, err)
		}
		shape = geom.Polygon{Points: pts, Width: width, Filled: sexp.IsFilled(node)}

	default:
		p.recs.Warn(records.UnsupportedConstruct, location(node), "skipped %s graphic", kind)
		return nil, nil
	}

	return &records.Item{Layer: layer, Shape: shape, Location: location(node)}, nil
}

func startEnd(node kicadsexp.Sexp) (geom.Point, geom.Point, error) {
	start, err := sexp.GetPoint(node, "start")
	if err != nil {
		return geom.Point{}, geom.Point{}, err
	}
	end, err := sexp.GetPoint(node, "end")
	if err != nil {
		return geom.Point{}, geom.Point{}, err
	}
	return start, end, nil
}

// parseText reads gr_text, fp_text or a footprint property. contentIndex is
// the position of the text in the list; baseAngle is subtracted from the
// file angle so footprint texts end up footprint-local. Hidden texts yield a
// nil item.
// Expected format: (gr_text "text" (at x y [angle]) (layer "F.SilkS") (effects (font (size h w)) (justify mirror)))
func (p *parser) parseText(node kicadsexp.Sexp, contentIndex int, baseAngle float64) (*records.Item, error) {
	content, err := sexp.GetString(node, contentIndex)
	if err != nil {
		return nil, malformed(node, "text: missing content", err)
	}
	if isHidden(node) {
		return nil, nil
	}

	layer, err := requiredLayer(node, "text")
	if err != nil {
		return nil, err
	}
	pos, fileAngle, err := sexp.GetAt(node)
	if err != nil {
		return nil, malformed(node, "text", err)
	}

	text := geom.Text{
		Content:  content,
		Origin:   pos,
		Size:     1,
		Rotation: kernelAngle(fileAngle - baseAngle),
	}
	if effects, found := sexp.FindNode(node, "effects"); found {
		if font, found := sexp.FindNode(effects, "font"); found {
			if h, ok := sexp.ChildFloat(font, "size"); ok {
				text.Size = h
			}
		}
		if justify, found := sexp.FindNode(effects, "justify"); found {
			text.Mirrored = sexp.HasSymbol(justify, "mirror")
		}
	}

	return &records.Item{Layer: layer, Shape: text, Location: location(node)}, nil
}

// isHidden recognizes the bare "hide" atom and (hide yes), on the text
// itself or inside its effects.
func isHidden(node kicadsexp.Sexp) bool {
	check := func(n kicadsexp.Sexp) bool {
		if sexp.HasSymbol(n, "hide") {
			return true
		}
		v, ok := sexp.ChildString(n, "hide")
		return ok && v == "yes"
	}
	if check(node) {
		return true
	}
	if effects, found := sexp.FindNode(node, "effects"); found {
		return check(effects)
	}
	return false
}
