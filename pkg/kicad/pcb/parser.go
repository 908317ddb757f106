// Package pcb reads KiCad .kicad_pcb board files into format-neutral raw
// board records. Footprints become one package template each plus a
// placement; tracks, vias and zones become board-level signal geometry.
package pcb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

// Minimum supported file version (KiCad 5.0 = 20171130)
const MinSupportedVersion = 20171130

// parser carries the state of one parse call.
type parser struct {
	recs   *records.RawBoardRecords
	nets   map[int]string
	copper []string
}

// ParseFile reads and parses a KiCad board file
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

// Parse reads and parses a KiCad board from an io.Reader. Documents that are
// not s-expressions, whose root is not kicad_pcb, or that lack a mandatory
// coordinate or layer are rejected with a *records.MalformedDocumentError.
func Parse(r io.Reader) (*records.RawBoardRecords, error) {
	sexps, err := kicadsexp.Parse(r)
	if err != nil {
		var se *kicadsexp.SyntaxError
		if errors.As(err, &se) {
			return nil, records.Malformed(records.FormatKiCad, se.Pos.String(), "invalid s-expression").Wrap(err)
		}
		return nil, fmt.Errorf("failed to read s-expression: %w", err)
	}

	if len(sexps) == 0 {
		return nil, records.Malformed(records.FormatKiCad, "", "empty file or no valid s-expressions found")
	}

	root := sexps[0]
	rootName, err := sexp.GetNodeName(root)
	if err != nil {
		return nil, records.Malformed(records.FormatKiCad, location(root), "root is not a list").Wrap(err)
	}
	if rootName != "kicad_pcb" {
		return nil, records.Malformed(records.FormatKiCad, location(root), "not a KiCad PCB file: expected 'kicad_pcb', got '%s'", rootName)
	}

	p := &parser{
		recs: &records.RawBoardRecords{
			Format: records.FormatKiCad,
			Unit:   geom.UnitMillimeter,
			YDown:  true,
		},
		nets: make(map[int]string),
	}
	if err := p.parseHeader(root); err != nil {
		return nil, err
	}
	if err := p.parseBody(root); err != nil {
		return nil, err
	}
	return p.recs, nil
}

// parseHeader extracts version and generator information from the root node
// Expected format: (kicad_pcb (version 20221018) (generator pcbnew) ...)
func (p *parser) parseHeader(root kicadsexp.Sexp) error {
	versionNode, found := sexp.FindNode(root, "version")
	if !found {
		return records.Malformed(records.FormatKiCad, location(root), "missing required 'version' field")
	}

	ver, err := sexp.GetInt(versionNode, 1)
	if err != nil {
		return records.Malformed(records.FormatKiCad, location(versionNode), "version is not numeric").Wrap(err)
	}
	if ver < MinSupportedVersion {
		return records.Malformed(records.FormatKiCad, location(versionNode),
			"unsupported KiCad version: %d (minimum required: %d / KiCad 5.0)", ver, MinSupportedVersion)
	}

	meta := &p.recs.Metadata
	meta.Version = strconv.Itoa(ver)
	meta.Generator = "unknown"
	if host, found := sexp.FindNode(root, "host"); found {
		// (host pcbnew "(6.0.0)")
		if tool, err := sexp.GetString(host, 1); err == nil {
			meta.Generator = tool
		}
	} else if gen, ok := sexp.ChildString(root, "generator"); ok {
		meta.Generator = gen
	}

	// Older files carry the title in (general), newer ones in (title_block).
	for _, key := range []string{"general", "title_block"} {
		node, found := sexp.FindNode(root, key)
		if !found {
			continue
		}
		if v, ok := sexp.ChildString(node, "title"); ok {
			meta.Title = v
		}
		if v, ok := sexp.ChildString(node, "date"); ok {
			meta.Date = v
		}
		if v, ok := sexp.ChildString(node, "rev"); ok {
			meta.Revision = v
		}
		if v, ok := sexp.ChildString(node, "company"); ok {
			meta.Company = v
		}
	}
	return nil
}

// ignoredNodes hold settings with no geometry.
var ignoredNodes = map[string]bool{
	"version":           true,
	"generator":         true,
	"generator_version": true,
	"host":              true,
	"general":           true,
	"paper":             true,
	"page":              true,
	"title_block":       true,
	"setup":             true,
	"net_class":         true,
	"property":          true,
	"group":             true,
	"generated":         true,
	"embedded_fonts":    true,
	"embedded_files":    true,
}

func (p *parser) parseBody(root kicadsexp.Sexp) error {
	if layersNode, found := sexp.FindNode(root, "layers"); found {
		if err := p.parseLayers(layersNode); err != nil {
			return err
		}
	}
	if err := p.parseNets(root); err != nil {
		return err
	}

	fpIndex := 0
	for _, node := range sexp.GetListItems(root) {
		if node.IsLeaf() {
			continue
		}
		name, err := sexp.GetNodeName(node)
		if err != nil {
			p.recs.Warn(records.UnsupportedConstruct, location(node), "skipped list without a name")
			continue
		}

		switch name {
		case "layers", "net":
			// handled above
		case "footprint", "module":
			if err := p.parseFootprint(node, fpIndex); err != nil {
				return err
			}
			fpIndex++
		case "gr_line", "gr_arc", "gr_circle", "gr_rect", "gr_poly", "gr_curve":
			item, err := p.parseGraphic(node, name[len("gr_"):])
			if err != nil {
				return err
			}
			if item != nil {
				p.recs.Graphics = append(p.recs.Graphics, *item)
			}
		case "gr_text":
			item, err := p.parseText(node, 1, 0)
			if err != nil {
				return err
			}
			if item != nil {
				p.recs.Texts = append(p.recs.Texts, *item)
			}
		case "segment":
			item, err := p.parseSegment(node)
			if err != nil {
				return err
			}
			p.recs.Signals = append(p.recs.Signals, item)
		case "arc":
			item, err := p.parseTrackArc(node)
			if err != nil {
				return err
			}
			p.recs.Signals = append(p.recs.Signals, item)
		case "via":
			items, err := p.parseVia(node)
			if err != nil {
				return err
			}
			p.recs.Signals = append(p.recs.Signals, items...)
		case "zone":
			items, err := p.parseZone(node)
			if err != nil {
				return err
			}
			p.recs.Signals = append(p.recs.Signals, items...)
		default:
			if !ignoredNodes[name] {
				p.recs.Warn(records.UnsupportedConstruct, location(node), "skipped unsupported element '%s'", name)
			}
		}
	}
	return nil
}

// parseLayers extracts layer definitions
// Expected format: (layers (0 "F.Cu" signal) (31 "B.Cu" signal) (44 "Edge.Cuts" user) ...)
func (p *parser) parseLayers(node kicadsexp.Sexp) error {
	for _, layerNode := range sexp.GetListItems(node) {
		if layerNode.IsLeaf() {
			continue
		}

		if _, err := sexp.GetInt(layerNode, 0); err != nil {
			return records.Malformed(records.FormatKiCad, location(layerNode), "layer number is not numeric").Wrap(err)
		}
		name, err := sexp.GetString(layerNode, 1)
		if err != nil {
			return records.Malformed(records.FormatKiCad, location(layerNode), "missing layer name").Wrap(err)
		}
		layerType, err := sexp.GetString(layerNode, 2)
		if err != nil {
			layerType = "user"
		}
		// optional user-facing name: (36 "B.SilkS" user "B.Silkscreen")
		display, err := sexp.GetString(layerNode, 3)
		if err != nil {
			display = name
		}

		p.recs.Layers = append(p.recs.Layers, records.Layer{
			NativeID: name,
			Name:     display,
			Type:     layerType,
			Visible:  true,
			Location: location(layerNode),
		})
		if strings.HasSuffix(name, ".Cu") {
			p.copper = append(p.copper, name)
		}
	}
	return nil
}

// parseNets extracts net definitions from the root node
// Expected format: (net 0 "") (net 1 "GND") (net 2 "+5V") ...
func (p *parser) parseNets(root kicadsexp.Sexp) error {
	for _, netNode := range sexp.FindAllNodes(root, "net") {
		number, err := sexp.GetInt(netNode, 1)
		if err != nil {
			return records.Malformed(records.FormatKiCad, location(netNode), "net number is not numeric").Wrap(err)
		}
		name, _ := sexp.GetString(netNode, 2)
		p.nets[number] = name
		if name != "" {
			p.recs.Nets = append(p.recs.Nets, records.Net{Name: name, Number: number})
		}
	}
	return nil
}

// netOf resolves a (net N ["name"]) child. Net 0 and empty names mean no net.
func (p *parser) netOf(node kicadsexp.Sexp) string {
	netNode, found := sexp.FindNode(node, "net")
	if !found {
		return ""
	}
	if name, err := sexp.GetString(netNode, 2); err == nil {
		return name
	}
	raw, err := sexp.GetString(netNode, 1)
	if err != nil {
		return ""
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return p.nets[n]
	}
	// newer files may name the net directly: (net "GND")
	return raw
}

// requiredLayer reads the mandatory (layer "X") child of a board item.
func requiredLayer(node kicadsexp.Sexp, what string) (string, error) {
	layer, ok := sexp.ChildString(node, "layer")
	if !ok {
		return "", records.Malformed(records.FormatKiCad, location(node), "%s: missing required 'layer' field", what)
	}
	return layer, nil
}

// malformed converts a helper error about a required field into a
// MalformedDocumentError pointing at node.
func malformed(node kicadsexp.Sexp, what string, err error) error {
	return records.Malformed(records.FormatKiCad, location(node), "%s", what).Wrap(err)
}

func location(node kicadsexp.Sexp) string {
	pos := kicadsexp.PosOf(node)
	if pos.Line == 0 {
		return ""
	}
	if name, err := sexp.GetNodeName(node); err == nil {
		return fmt.Sprintf("%s (%s)", pos, name)
	}
	return pos.String()
}

// kernelAngle converts a file angle to the geometry kernel's convention.
// The file's Y axis points down, so a visually counter-clockwise angle is
// clockwise in raw coordinates.
func kernelAngle(fileAngle float64) float64 {
	return geom.NormalizeDegrees(-fileAngle)
}
