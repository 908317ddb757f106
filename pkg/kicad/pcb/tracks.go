package pcb

import (
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

// parseSegment extracts a track segment (copper trace)
// Expected format: (segment (start x y) (end x y) (width w) (layer "layer") (net n) ...)
func (p *parser) parseSegment(node kicadsexp.Sexp) (records.Item, error) {
	start, end, err := startEnd(node)
	if err != nil {
		return records.Item{}, malformed(node, "segment", err)
	}
	layer, err := requiredLayer(node, "segment")
	if err != nil {
		return records.Item{}, err
	}
	width, _ := sexp.ChildFloat(node, "width")

	return records.Item{
		Layer:    layer,
		Net:      p.netOf(node),
		Shape:    geom.Segment{Start: start, End: end, Width: width},
		Location: location(node),
	}, nil
}

// parseTrackArc extracts a curved track
// Expected format: (arc (start x y) (mid x y) (end x y) (width w) (layer "layer") (net n))
func (p *parser) parseTrackArc(node kicadsexp.Sexp) (records.Item, error) {
	start, end, err := startEnd(node)
	if err != nil {
		return records.Item{}, malformed(node, "arc", err)
	}
	mid, err := sexp.GetPoint(node, "mid")
	if err != nil {
		return records.Item{}, malformed(node, "arc", err)
	}
	layer, err := requiredLayer(node, "arc")
	if err != nil {
		return records.Item{}, err
	}
	width, _ := sexp.ChildFloat(node, "width")

	return records.Item{
		Layer:    layer,
		Net:      p.netOf(node),
		Shape:    geom.ArcThrough(start, mid, end, width),
		Location: location(node),
	}, nil
}

// parseVia extracts a via. A via spans several copper layers and yields one
// item per layer it lists.
// Expected format: (via (at x y) (size d) (drill d) (layers "F.Cu" "B.Cu") (net n))
func (p *parser) parseVia(node kicadsexp.Sexp) ([]records.Item, error) {
	pos, _, err := sexp.GetAt(node)
	if err != nil {
		return nil, malformed(node, "via", err)
	}
	size, ok := sexp.ChildFloat(node, "size")
	if !ok {
		return nil, records.Malformed(records.FormatKiCad, location(node), "via: missing required 'size' field")
	}
	drill, _ := sexp.ChildFloat(node, "drill")

	names := []string{"F.Cu", "B.Cu"}
	if layersNode, found := sexp.FindNode(node, "layers"); found {
		names = names[:0]
		for _, item := range sexp.GetListItems(layersNode) {
			if item.IsLeaf() {
				names = append(names, item.String())
			}
		}
	}

	net := p.netOf(node)
	via := geom.Via{Center: pos, Diameter: size, Drill: drill}
	var items []records.Item
	for _, layer := range p.expandLayers(names) {
		items = append(items, records.Item{Layer: layer, Net: net, Shape: via, Location: location(node)})
	}
	return items, nil
}
