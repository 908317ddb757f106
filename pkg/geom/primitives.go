package geom

import (
	"math"
	"unicode/utf8"
)

// Kind names a primitive shape variant.
type Kind string

const (
	KindSegment Kind = "segment"
	KindArc     Kind = "arc"
	KindCircle  Kind = "circle"
	KindRect    Kind = "rect"
	KindPolygon Kind = "polygon"
	KindPad     Kind = "pad"
	KindVia     Kind = "via"
	KindText    Kind = "text"
)

// Primitive is implemented by every shape variant. Transform never mutates
// the receiver; it returns a new value with all coordinates and angles
// mapped through t.
type Primitive interface {
	Kind() Kind
	Bounds() Box
	Transform(t Transform) Primitive
}

// Segment is a stroked straight line.
type Segment struct {
	Start Point   `json:"start"`
	End   Point   `json:"end"`
	Width float64 `json:"width"`
}

func (Segment) Kind() Kind { return KindSegment }

func (s Segment) Bounds() Box { return BoxOf(s.Start, s.End) }

func (s Segment) Transform(t Transform) Primitive {
	return Segment{Start: t.Apply(s.Start), End: t.Apply(s.End), Width: s.Width * t.ScaleFactor()}
}

// Arc is a stroked circular arc. StartAngle is the direction of the first
// endpoint from the center; Sweep is signed, positive counter-clockwise.
type Arc struct {
	Center     Point   `json:"center"`
	Radius     float64 `json:"radius"`
	StartAngle float64 `json:"start_angle"`
	Sweep      float64 `json:"sweep"`
	Width      float64 `json:"width"`
}

// ArcThrough builds the arc that starts at start, passes through mid and
// ends at end. Collinear points degrade to a zero-sweep arc at start.
func ArcThrough(start, mid, end Point, width float64) Arc {
	ax, ay := start.X, start.Y
	bx, by := mid.X, mid.Y
	cx, cy := end.X, end.Y
	d := 2 * (ax*(by-cy) + bx*(cy-ay) + cx*(ay-by))
	if math.Abs(d) < 1e-12 {
		return Arc{Center: start, Width: width}
	}
	a2 := ax*ax + ay*ay
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	center := Point{
		X: (a2*(by-cy) + b2*(cy-ay) + c2*(ay-by)) / d,
		Y: (a2*(cx-bx) + b2*(ax-cx) + c2*(bx-ax)) / d,
	}
	sa := degrees(math.Atan2(ay-center.Y, ax-center.X))
	ma := degrees(math.Atan2(by-center.Y, bx-center.X))
	ea := degrees(math.Atan2(cy-center.Y, cx-center.X))
	sweep := NormalizeDegrees(ea - sa)
	if NormalizeDegrees(ma-sa) > sweep {
		sweep -= 360
	}
	return Arc{
		Center:     center,
		Radius:     center.Distance(start),
		StartAngle: NormalizeDegrees(sa),
		Sweep:      sweep,
		Width:      width,
	}
}

// ArcFromChord builds the arc from start to end that subtends sweep degrees,
// positive counter-clockwise.
func ArcFromChord(start, end Point, sweep, width float64) Arc {
	if sweep == 0 || start == end {
		return Arc{Center: start, Width: width}
	}
	chord := start.Distance(end)
	half := radians(sweep) / 2
	r := chord / (2 * math.Sin(math.Abs(half)))
	mx, my := (start.X+end.X)/2, (start.Y+end.Y)/2
	// distance from chord midpoint to center, signed by sweep direction
	h := r * math.Cos(half)
	if sweep < 0 {
		h = -h
	}
	nx, ny := -(end.Y-start.Y)/chord, (end.X-start.X)/chord
	center := Point{X: mx + nx*h, Y: my + ny*h}
	return Arc{
		Center:     center,
		Radius:     math.Abs(r),
		StartAngle: NormalizeDegrees(degrees(math.Atan2(start.Y-center.Y, start.X-center.X))),
		Sweep:      sweep,
		Width:      width,
	}
}

// ArcAround builds the arc centred on center that starts at start and
// sweeps sweep degrees, positive counter-clockwise.
func ArcAround(center, start Point, sweep, width float64) Arc {
	return Arc{
		Center:     center,
		Radius:     center.Distance(start),
		StartAngle: NormalizeDegrees(degrees(math.Atan2(start.Y-center.Y, start.X-center.X))),
		Sweep:      sweep,
		Width:      width,
	}
}

func (Arc) Kind() Kind { return KindArc }

// PointAt returns the point on the arc at direction deg.
func (a Arc) PointAt(deg float64) Point {
	s, c := math.Sincos(radians(deg))
	return Point{X: a.Center.X + a.Radius*c, Y: a.Center.Y + a.Radius*s}
}

func (a Arc) StartPoint() Point { return a.PointAt(a.StartAngle) }

func (a Arc) EndPoint() Point { return a.PointAt(a.StartAngle + a.Sweep) }

// Bounds is the tight envelope: both endpoints plus every axis extreme the
// arc passes through.
func (a Arc) Bounds() Box {
	if math.Abs(a.Sweep) >= 360 {
		return Circle{Center: a.Center, Radius: a.Radius}.Bounds()
	}
	start, sweep := a.StartAngle, a.Sweep
	if sweep < 0 {
		start, sweep = start+sweep, -sweep
	}
	b := BoxOf(a.PointAt(start), a.PointAt(start+sweep))
	for q := 0.0; q < 360; q += 90 {
		if NormalizeDegrees(q-start) <= sweep {
			b = b.Extend(a.PointAt(q))
		}
	}
	return b
}

func (a Arc) Transform(t Transform) Primitive {
	sweep := a.Sweep
	if t.Mirrored() {
		sweep = -sweep
	}
	return Arc{
		Center:     t.Apply(a.Center),
		Radius:     a.Radius * t.ScaleFactor(),
		StartAngle: t.direction(a.StartAngle),
		Sweep:      sweep,
		Width:      a.Width * t.ScaleFactor(),
	}
}

// Points flattens the arc into n+1 points.
func (a Arc) Points(n int) []Point {
	if n < 1 {
		n = 1
	}
	pts := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		pts = append(pts, a.PointAt(a.StartAngle+a.Sweep*float64(i)/float64(n)))
	}
	return pts
}

// Circle is a stroked or filled circle.
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
	Width  float64 `json:"width"`
	Filled bool    `json:"filled"`
}

func (Circle) Kind() Kind { return KindCircle }

func (c Circle) Bounds() Box {
	return Box{
		Min: Point{X: c.Center.X - c.Radius, Y: c.Center.Y - c.Radius},
		Max: Point{X: c.Center.X + c.Radius, Y: c.Center.Y + c.Radius},
	}
}

func (c Circle) Transform(t Transform) Primitive {
	k := t.ScaleFactor()
	return Circle{Center: t.Apply(c.Center), Radius: c.Radius * k, Width: c.Width * k, Filled: c.Filled}
}

// Rect is a rectangle centred on Center, rotated counter-clockwise.
type Rect struct {
	Center   Point   `json:"center"`
	Size     Size    `json:"size"`
	Rotation float64 `json:"rotation"`
	Width    float64 `json:"width"`
	Filled   bool    `json:"filled"`
}

// RectFromCorners builds an unrotated rectangle spanning two corners.
func RectFromCorners(a, b Point, width float64, filled bool) Rect {
	return Rect{
		Center: Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2},
		Size:   Size{W: math.Abs(b.X - a.X), H: math.Abs(b.Y - a.Y)},
		Width:  width,
		Filled: filled,
	}
}

func (Rect) Kind() Kind { return KindRect }

// Corners returns the rectangle's outline counter-clockwise.
func (r Rect) Corners() []Point {
	return rotatedRect(r.Center, r.Size, r.Rotation)
}

func (r Rect) Bounds() Box { return BoxOf(r.Corners()...) }

func (r Rect) Transform(t Transform) Primitive {
	k := t.ScaleFactor()
	return Rect{
		Center:   t.Apply(r.Center),
		Size:     Size{W: r.Size.W * k, H: r.Size.H * k},
		Rotation: t.rotationField(r.Rotation),
		Width:    r.Width * k,
		Filled:   r.Filled,
	}
}

// Polygon is a closed outline. Filled polygons are copper pours or solid
// graphics; unfilled ones are drawn as outlines.
type Polygon struct {
	Points []Point `json:"points"`
	Width  float64 `json:"width"`
	Filled bool    `json:"filled"`
}

func (Polygon) Kind() Kind { return KindPolygon }

// Bounds of a polygon without vertices is EmptyBox.
func (p Polygon) Bounds() Box { return BoxOf(p.Points...) }

func (p Polygon) Transform(t Transform) Primitive {
	pts := make([]Point, len(p.Points))
	for i, pt := range p.Points {
		pts[i] = t.Apply(pt)
	}
	return Polygon{Points: pts, Width: p.Width * t.ScaleFactor(), Filled: p.Filled}
}

// PadShape is the copper outline of a pad.
type PadShape string

const (
	PadCircle    PadShape = "circle"
	PadRect      PadShape = "rect"
	PadOval      PadShape = "oval"
	PadRoundRect PadShape = "roundrect"
	PadOctagon   PadShape = "octagon"
	PadTrapezoid PadShape = "trapezoid"
	PadCustom    PadShape = "custom"
)

// Pad is a component land: an SMD pad when Drill is zero, otherwise a
// plated or non-plated through hole.
type Pad struct {
	Number   string   `json:"number"`
	Center   Point    `json:"center"`
	Size     Size     `json:"size"`
	Shape    PadShape `json:"shape"`
	Rotation float64  `json:"rotation"`
	Drill    float64  `json:"drill,omitempty"`
	Mirrored bool     `json:"mirrored"`
}

func (Pad) Kind() Kind { return KindPad }

func (p Pad) Bounds() Box {
	switch p.Shape {
	case PadCircle:
		r := p.Size.W / 2
		return Box{
			Min: Point{X: p.Center.X - r, Y: p.Center.Y - r},
			Max: Point{X: p.Center.X + r, Y: p.Center.Y + r},
		}
	case PadOval:
		// a stadium: the straight core inflated by half the short side
		long, short := p.Size.W, p.Size.H
		dir := p.Rotation
		if short > long {
			long, short = short, long
			dir += 90
		}
		s, c := math.Sincos(radians(dir))
		h := (long - short) / 2
		core := BoxOf(
			Point{X: p.Center.X - c*h, Y: p.Center.Y - s*h},
			Point{X: p.Center.X + c*h, Y: p.Center.Y + s*h},
		)
		return core.Inflate(short / 2)
	default:
		return BoxOf(p.Outline()...)
	}
}

// Outline returns the pad's rectangular envelope counter-clockwise.
func (p Pad) Outline() []Point {
	return rotatedRect(p.Center, p.Size, p.Rotation)
}

func (p Pad) Transform(t Transform) Primitive {
	k := t.ScaleFactor()
	return Pad{
		Number:   p.Number,
		Center:   t.Apply(p.Center),
		Size:     Size{W: p.Size.W * k, H: p.Size.H * k},
		Shape:    p.Shape,
		Rotation: t.rotationField(p.Rotation),
		Drill:    p.Drill * k,
		Mirrored: p.Mirrored != t.Mirrored(),
	}
}

// Via is a plated hole joining copper layers.
type Via struct {
	Center   Point   `json:"center"`
	Diameter float64 `json:"diameter"`
	Drill    float64 `json:"drill"`
}

func (Via) Kind() Kind { return KindVia }

func (v Via) Bounds() Box {
	r := v.Diameter / 2
	return Box{
		Min: Point{X: v.Center.X - r, Y: v.Center.Y - r},
		Max: Point{X: v.Center.X + r, Y: v.Center.Y + r},
	}
}

func (v Via) Transform(t Transform) Primitive {
	k := t.ScaleFactor()
	return Via{Center: t.Apply(v.Center), Diameter: v.Diameter * k, Drill: v.Drill * k}
}

// Text is an annotation anchored at Origin. Size is the glyph height.
type Text struct {
	Content  string  `json:"content"`
	Origin   Point   `json:"origin"`
	Size     float64 `json:"size"`
	Rotation float64 `json:"rotation"`
	Mirrored bool    `json:"mirrored"`
}

// textAspect approximates the advance of a vector-font glyph.
const textAspect = 0.6

func (Text) Kind() Kind { return KindText }

// Bounds is an estimate from the glyph height and rune count; renderers
// with real font metrics should measure for themselves.
func (t Text) Bounds() Box {
	w := float64(utf8.RuneCountInString(t.Content)) * t.Size * textAspect
	if w == 0 {
		return BoxOf(t.Origin)
	}
	x0, x1 := 0.0, w
	if t.Mirrored {
		x0, x1 = -w, 0
	}
	tr := Rotate(t.Rotation).Then(Translate(t.Origin.X, t.Origin.Y))
	return BoxOf(
		tr.Apply(Point{X: x0, Y: 0}),
		tr.Apply(Point{X: x1, Y: 0}),
		tr.Apply(Point{X: x1, Y: t.Size}),
		tr.Apply(Point{X: x0, Y: t.Size}),
	)
}

func (t Text) Transform(tr Transform) Primitive {
	return Text{
		Content:  t.Content,
		Origin:   tr.Apply(t.Origin),
		Size:     t.Size * tr.ScaleFactor(),
		Rotation: tr.rotationField(t.Rotation),
		Mirrored: t.Mirrored != tr.Mirrored(),
	}
}

func rotatedRect(center Point, size Size, rotation float64) []Point {
	hw, hh := size.W/2, size.H/2
	tr := Rotate(rotation).Then(Translate(center.X, center.Y))
	return []Point{
		tr.Apply(Point{X: -hw, Y: -hh}),
		tr.Apply(Point{X: hw, Y: -hh}),
		tr.Apply(Point{X: hw, Y: hh}),
		tr.Apply(Point{X: -hw, Y: hh}),
	}
}
