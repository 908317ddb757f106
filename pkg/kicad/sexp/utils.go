// Package sexp provides the node navigation and typed value helpers used by
// the KiCad board parser on top of the kicadsexp reader.
package sexp

import (
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp/kicadsexp"
)

// Items returns the children of a list, or nil for atoms.
func Items(s kicadsexp.Sexp) []kicadsexp.Sexp {
	if l, ok := s.(*kicadsexp.List); ok {
		return l.Elements()
	}
	return nil
}

// GetNodeName returns the leading symbol of a list.
// Example: GetNodeName((at 1 2)) returns "at"
func GetNodeName(s kicadsexp.Sexp) (string, error) {
	if s == nil || s.IsLeaf() {
		return "", fmt.Errorf("expected list, got leaf")
	}
	items := Items(s)
	if len(items) == 0 {
		return "", fmt.Errorf("empty list")
	}
	sym, ok := items[0].(kicadsexp.Symbol)
	if !ok {
		return "", fmt.Errorf("list starts with a list")
	}
	return string(sym), nil
}

// FindNode searches for a child list with the given key (first symbol)
// Example: FindNode(sexp, "at") finds (at 100 50) in a list
func FindNode(s kicadsexp.Sexp, key string) (kicadsexp.Sexp, bool) {
	for _, item := range Items(s) {
		if item.IsLeaf() {
			continue
		}
		if name, err := GetNodeName(item); err == nil && name == key {
			return item, true
		}
	}
	return nil, false
}

// FindAllNodes finds all child lists with the given key
func FindAllNodes(s kicadsexp.Sexp, key string) []kicadsexp.Sexp {
	var results []kicadsexp.Sexp
	for _, item := range Items(s) {
		if item.IsLeaf() {
			continue
		}
		if name, err := GetNodeName(item); err == nil && name == key {
			results = append(results, item)
		}
	}
	return results
}

// GetListItems returns all items in a list (excluding the first symbol/key)
// Example: GetListItems((layers "F.Cu" "B.Cu")) returns ["F.Cu", "B.Cu"]
func GetListItems(s kicadsexp.Sexp) []kicadsexp.Sexp {
	items := Items(s)
	if len(items) <= 1 {
		return nil
	}
	return items[1:]
}

// GetString extracts an atom at the given index in a list.
// Index 0 is the key, 1 is first value, etc.
func GetString(s kicadsexp.Sexp, index int) (string, error) {
	if s == nil || s.IsLeaf() {
		return "", fmt.Errorf("expected list, got leaf")
	}
	items := Items(s)
	if index < 0 || index >= len(items) {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, len(items))
	}
	if sym, ok := items[index].(kicadsexp.Symbol); ok {
		return string(sym), nil
	}
	return "", fmt.Errorf("expected symbol at index %d, got list", index)
}

// GetFloat extracts a float64 value at the given index
func GetFloat(s kicadsexp.Sexp, index int) (float64, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}
	return val, nil
}

// GetInt extracts an int value at the given index
func GetInt(s kicadsexp.Sexp, index int) (int, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}
	return val, nil
}

// HasSymbol reports whether a list contains the bare atom symbol.
func HasSymbol(s kicadsexp.Sexp, symbol string) bool {
	for _, item := range Items(s) {
		if sym, ok := item.(kicadsexp.Symbol); ok && string(sym) == symbol {
			return true
		}
	}
	return false
}

// ChildString returns the first value of the child list named key.
// Example: ChildString(fp, "layer") returns "F.Cu" for (layer "F.Cu")
func ChildString(s kicadsexp.Sexp, key string) (string, bool) {
	node, found := FindNode(s, key)
	if !found {
		return "", false
	}
	v, err := GetString(node, 1)
	return v, err == nil
}

// ChildFloat returns the first numeric value of the child list named key.
func ChildFloat(s kicadsexp.Sexp, key string) (float64, bool) {
	node, found := FindNode(s, key)
	if !found {
		return 0, false
	}
	v, err := GetFloat(node, 1)
	return v, err == nil
}

// GetPoint reads an (key X Y) child such as (start 1 2) or (xy 3 4).
func GetPoint(s kicadsexp.Sexp, key string) (geom.Point, error) {
	node, found := FindNode(s, key)
	if !found {
		return geom.Point{}, fmt.Errorf("missing required '%s'", key)
	}
	return PointOf(node)
}

// PointOf reads the X and Y of a node like (xy X Y).
func PointOf(node kicadsexp.Sexp) (geom.Point, error) {
	name, _ := GetNodeName(node)
	x, err := GetFloat(node, 1)
	if err != nil {
		return geom.Point{}, fmt.Errorf("%s X: %w", name, err)
	}
	y, err := GetFloat(node, 2)
	if err != nil {
		return geom.Point{}, fmt.Errorf("%s Y: %w", name, err)
	}
	return geom.Point{X: x, Y: y}, nil
}

// GetAt reads an (at X Y [angle]) child. The angle is in file degrees and
// defaults to zero.
func GetAt(s kicadsexp.Sexp) (geom.Point, float64, error) {
	node, found := FindNode(s, "at")
	if !found {
		return geom.Point{}, 0, fmt.Errorf("missing required 'at' position")
	}
	p, err := PointOf(node)
	if err != nil {
		return geom.Point{}, 0, err
	}
	angle, err := GetFloat(node, 3)
	if err != nil {
		angle = 0
	}
	return p, angle, nil
}

// GetPoints reads every (xy X Y) inside a (pts ...) child.
func GetPoints(s kicadsexp.Sexp) ([]geom.Point, error) {
	pts, found := FindNode(s, "pts")
	if !found {
		return nil, fmt.Errorf("missing required 'pts'")
	}
	var out []geom.Point
	for _, xy := range FindAllNodes(pts, "xy") {
		p, err := PointOf(xy)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// GetStrokeWidth reads (width w) or (stroke (width w)); zero when absent.
func GetStrokeWidth(s kicadsexp.Sexp) float64 {
	if w, ok := ChildFloat(s, "width"); ok {
		return w
	}
	if stroke, found := FindNode(s, "stroke"); found {
		if w, ok := ChildFloat(stroke, "width"); ok {
			return w
		}
	}
	return 0
}

// IsFilled reports a (fill solid), (fill yes) or (fill (type solid)) child.
func IsFilled(s kicadsexp.Sexp) bool {
	fill, found := FindNode(s, "fill")
	if !found {
		return false
	}
	if v, err := GetString(fill, 1); err == nil {
		return v == "solid" || v == "yes"
	}
	if t, ok := ChildString(fill, "type"); ok {
		return t != "none"
	}
	return false
}
