package pcb

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

// footprintIgnored are footprint children with no board geometry.
var footprintIgnored = map[string]bool{
	"layer": true, "at": true, "uuid": true, "tstamp": true, "tedit": true,
	"descr": true, "tags": true, "path": true, "sheetname": true, "sheetfile": true,
	"attr": true, "model": true, "locked": true, "placed": true,
	"solder_mask_margin": true, "solder_paste_margin": true, "solder_paste_ratio": true,
	"solder_paste_margin_ratio": true, "clearance": true, "zone_connect": true,
	"thermal_width": true, "thermal_gap": true, "net_tie_pad_groups": true,
	"private_layers": true, "embedded_fonts": true, "embedded_files": true,
	"group": true, "autoplace_cost90": true, "autoplace_cost180": true,
	"duplicate_pad_numbers_are_jumpers": true, "component_classes": true,
}

// parseFootprint turns one footprint into a package template holding its
// footprint-local geometry plus the placement that instantiates it.
// Expected format: (footprint "Lib:Name" (layer "F.Cu") (at x y [angle]) (property ...) (pad ...) (fp_line ...) ...)
func (p *parser) parseFootprint(node kicadsexp.Sexp, index int) error {
	fullName, err := sexp.GetString(node, 1)
	if err != nil {
		return malformed(node, "footprint: missing name", err)
	}
	library, name := "", fullName
	if i := strings.Index(fullName, ":"); i >= 0 {
		library, name = fullName[:i], fullName[i+1:]
	}

	layer, err := requiredLayer(node, "footprint")
	if err != nil {
		return err
	}
	pos, fileAngle, err := sexp.GetAt(node)
	if err != nil {
		return malformed(node, "footprint: invalid position", err)
	}

	// Every footprint is its own template: boards may carry locally edited
	// copies of a library footprint.
	pkg := records.Package{
		Name:     fmt.Sprintf("%s#%d", fullName, index),
		Library:  library,
		Location: location(node),
	}
	side := records.SideTop
	if strings.HasPrefix(layer, "B.") {
		side = records.SideBottom
	}
	placement := records.Placement{
		Package:  pkg.Name,
		Position: pos,
		Rotation: kernelAngle(fileAngle),
		// back-side footprints are stored already flipped
		Mirrored: false,
		Side:     side,
		Layer:    layer,
		PadNets:  make(map[string]string),
		Location: location(node),
	}
	if id, ok := sexp.ChildString(node, "uuid"); ok {
		placement.UUID = id
	} else if id, ok := sexp.ChildString(node, "tstamp"); ok {
		placement.UUID = id
	}

	for _, child := range sexp.GetListItems(node) {
		if child.IsLeaf() {
			continue
		}
		kind, err := sexp.GetNodeName(child)
		if err != nil {
			continue
		}

		switch kind {
		case "property":
			key, _ := sexp.GetString(child, 1)
			val, _ := sexp.GetString(child, 2)
			switch key {
			case "Reference":
				placement.Ref = val
			case "Value":
				placement.Value = val
			default:
				continue
			}
			if _, found := sexp.FindNode(child, "at"); !found {
				continue
			}
			item, err := p.parseText(child, 2, fileAngle)
			if err != nil {
				return err
			}
			if item != nil {
				pkg.Items = append(pkg.Items, *item)
			}
		case "fp_text":
			textType, _ := sexp.GetString(child, 1)
			val, _ := sexp.GetString(child, 2)
			switch textType {
			case "reference":
				placement.Ref = val
			case "value":
				placement.Value = val
			}
			item, err := p.parseText(child, 2, fileAngle)
			if err != nil {
				return err
			}
			if item != nil {
				pkg.Items = append(pkg.Items, *item)
			}
		case "fp_line", "fp_arc", "fp_circle", "fp_rect", "fp_poly", "fp_curve":
			item, err := p.parseGraphic(child, kind[len("fp_"):])
			if err != nil {
				return err
			}
			if item != nil {
				pkg.Items = append(pkg.Items, *item)
			}
		case "pad":
			items, number, net, err := p.parsePad(child, fileAngle)
			if err != nil {
				return err
			}
			pkg.Items = append(pkg.Items, items...)
			if number != "" && net != "" {
				placement.PadNets[number] = net
			}
		default:
			if !footprintIgnored[kind] && !ignoredNodes[kind] {
				p.recs.Warn(records.UnsupportedConstruct, location(child),
					"footprint %s: skipped unsupported element '%s'", name, kind)
			}
		}
	}

	p.recs.Packages = append(p.recs.Packages, pkg)
	p.recs.Placements = append(p.recs.Placements, placement)
	return nil
}

var padShapes = map[string]geom.PadShape{
	"circle":    geom.PadCircle,
	"rect":      geom.PadRect,
	"oval":      geom.PadOval,
	"roundrect": geom.PadRoundRect,
	"trapezoid": geom.PadTrapezoid,
	"custom":    geom.PadCustom,
}

// parsePad extracts a pad definition from a footprint. It yields one template
// item per copper or technical layer the pad sits on.
// Expected format: (pad "number" type shape (at x y [angle]) (size w h) (layers ...) (net n "name") ...)
func (p *parser) parsePad(node kicadsexp.Sexp, footprintAngle float64) ([]records.Item, string, string, error) {
	number, err := sexp.GetString(node, 1)
	if err != nil {
		return nil, "", "", malformed(node, "pad: missing number", err)
	}
	padType, _ := sexp.GetString(node, 2)
	shapeName, _ := sexp.GetString(node, 3)
	shape, ok := padShapes[shapeName]
	if !ok {
		p.recs.Warn(records.UnsupportedConstruct, location(node), "pad %s: unknown shape '%s', drawn as rect", number, shapeName)
		shape = geom.PadRect
	}

	pos, fileAngle, err := sexp.GetAt(node)
	if err != nil {
		return nil, "", "", malformed(node, "pad "+number, err)
	}
	sizeNode, found := sexp.FindNode(node, "size")
	if !found {
		return nil, "", "", records.Malformed(records.FormatKiCad, location(node), "pad %s: missing required 'size' field", number)
	}
	size, err := sexp.PointOf(sizeNode)
	if err != nil {
		return nil, "", "", malformed(node, "pad "+number+": invalid size", err)
	}

	pad := geom.Pad{
		Number: number,
		Center: pos,
		Size:   geom.Size{W: size.X, H: size.Y},
		Shape:  shape,
		// pad angles in the file already include the footprint rotation
		Rotation: kernelAngle(fileAngle - footprintAngle),
	}
	if drillNode, found := sexp.FindNode(node, "drill"); found {
		// (drill 0.8) or (drill oval 0.6 1.2)
		if d, err := sexp.GetFloat(drillNode, 1); err == nil {
			pad.Drill = d
		} else if d, err := sexp.GetFloat(drillNode, 2); err == nil {
			pad.Drill = d
		}
	}

	layersNode, found := sexp.FindNode(node, "layers")
	if !found {
		return nil, "", "", records.Malformed(records.FormatKiCad, location(node), "pad %s: missing required 'layers' field", number)
	}
	var names []string
	for _, item := range sexp.GetListItems(layersNode) {
		if item.IsLeaf() {
			names = append(names, item.String())
		}
	}

	net := ""
	if padType != "np_thru_hole" {
		net = p.netOf(node)
	}

	var items []records.Item
	for _, layer := range p.expandLayers(names) {
		items = append(items, records.Item{Layer: layer, Shape: pad, Location: location(node)})
	}
	return items, number, net, nil
}

// expandLayers resolves wildcard layer names such as "*.Cu" or "F&B.Cu".
func (p *parser) expandLayers(names []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	for _, n := range names {
		var suffix string
		switch {
		case strings.HasPrefix(n, "*."):
			suffix = n[2:]
		case strings.HasPrefix(n, "F&B."):
			suffix = n[4:]
		default:
			add(n)
			continue
		}
		if suffix == "Cu" && strings.HasPrefix(n, "*.") && len(p.copper) > 0 {
			for _, c := range p.copper {
				add(c)
			}
			continue
		}
		add("F." + suffix)
		add("B." + suffix)
	}
	return out
}
