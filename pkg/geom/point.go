// Package geom is the geometry kernel shared by the board parsers, the
// unifier and the exporters: points, axis-aligned boxes, 2x3 affine
// transforms and the primitive shapes that appear on a board.
package geom

import "math"

// Point is a 2D coordinate in board units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the Euclidean distance to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Near reports whether p and q are within eps of each other on both axes.
func (p Point) Near(q Point, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps
}

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Unit tags the native length unit of a board file. Coordinates are never
// converted; the tag travels with the model so consumers can label values.
type Unit string

const (
	UnitMillimeter Unit = "mm"
	UnitInch       Unit = "in"
	UnitMil        Unit = "mil"
)

// NormalizeDegrees maps an angle onto [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// AnglesEqual compares two angles modulo 360 within eps degrees.
func AnglesEqual(a, b, eps float64) bool {
	d := math.Abs(NormalizeDegrees(a) - NormalizeDegrees(b))
	return d <= eps || 360-d <= eps
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
