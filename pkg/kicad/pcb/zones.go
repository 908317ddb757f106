package pcb

import (
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

// parseZone extracts a copper pour. Every filled polygon becomes a filled
// polygon item on its layer; a zone that was never filled contributes its
// outline on each of its layers instead.
// Expected format: (zone (net 1) (net_name "GND") (layer "F.Cu") (polygon (pts ...)) (filled_polygon (layer "F.Cu") (pts ...)))
func (p *parser) parseZone(node kicadsexp.Sexp) ([]records.Item, error) {
	var layers []string
	if layer, ok := sexp.ChildString(node, "layer"); ok {
		layers = []string{layer}
	} else if layersNode, found := sexp.FindNode(node, "layers"); found {
		var names []string
		for _, item := range sexp.GetListItems(layersNode) {
			if item.IsLeaf() {
				names = append(names, item.String())
			}
		}
		layers = p.expandLayers(names)
	}
	if len(layers) == 0 {
		return nil, records.Malformed(records.FormatKiCad, location(node), "zone: missing required 'layer' field")
	}

	net := p.netOf(node)
	if name, ok := sexp.ChildString(node, "net_name"); ok {
		net = name
	}

	var items []records.Item
	for _, fill := range sexp.FindAllNodes(node, "filled_polygon") {
		pts, err := sexp.GetPoints(fill)
		if err != nil {
			return nil, malformed(fill, "zone fill", err)
		}
		layer, ok := sexp.ChildString(fill, "layer")
		if !ok {
			layer = layers[0]
		}
		items = append(items, records.Item{
			Layer:    layer,
			Net:      net,
			Shape:    geom.Polygon{Points: pts, Filled: true},
			Location: location(fill),
		})
	}
	if len(items) > 0 {
		return items, nil
	}

	outline, found := sexp.FindNode(node, "polygon")
	if !found {
		p.recs.Warn(records.UnsupportedConstruct, location(node), "zone without outline or fill skipped")
		return nil, nil
	}
	pts, err := sexp.GetPoints(outline)
	if err != nil {
		return nil, malformed(outline, "zone outline", err)
	}
	for _, layer := range layers {
		items = append(items, records.Item{
			Layer:    layer,
			Net:      net,
			Shape:    geom.Polygon{Points: pts},
			Location: location(outline),
		})
	}
	return items, nil
}
