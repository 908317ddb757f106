package geom

import "math"

// Transform is a 2x3 affine transformation matrix.
//
//	[A B TX]
//	[C D TY]
type Transform struct {
	A, B, TX float64
	C, D, TY float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{A: 1, D: 1}
}

// Translate returns a translation by (dx, dy).
func Translate(dx, dy float64) Transform {
	return Transform{A: 1, D: 1, TX: dx, TY: dy}
}

// Rotate returns a counter-clockwise rotation about the origin.
func Rotate(deg float64) Transform {
	s, c := math.Sincos(radians(deg))
	// Snap the quarter turns so 90/180/270 placements stay exact.
	if math.Abs(s) < 1e-15 {
		s = 0
	}
	if math.Abs(c) < 1e-15 {
		c = 0
	}
	return Transform{A: c, B: -s, C: s, D: c}
}

// MirrorX mirrors across the Y axis (x -> -x).
func MirrorX() Transform {
	return Transform{A: -1, D: 1}
}

// Scale returns a scaling transform.
func Scale(sx, sy float64) Transform {
	return Transform{A: sx, D: sy}
}

// Placement builds the transform that instantiates package-local geometry
// at a component placement: mirror (when set), then rotate, then translate.
func Placement(pos Point, rotation float64, mirrored bool) Transform {
	t := Identity()
	if mirrored {
		t = MirrorX()
	}
	return Compose(Compose(t, Rotate(rotation)), Translate(pos.X, pos.Y))
}

// Compose returns the transform that applies t1 and then t2.
func Compose(t1, t2 Transform) Transform {
	return t2.mul(t1)
}

// Then is Compose(t, next).
func (t Transform) Then(next Transform) Transform {
	return Compose(t, next)
}

// mul returns the matrix product t*o.
func (t Transform) mul(o Transform) Transform {
	return Transform{
		A:  t.A*o.A + t.B*o.C,
		B:  t.A*o.B + t.B*o.D,
		TX: t.A*o.TX + t.B*o.TY + t.TX,
		C:  t.C*o.A + t.D*o.C,
		D:  t.C*o.B + t.D*o.D,
		TY: t.C*o.TX + t.D*o.TY + t.TY,
	}
}

// Apply maps a point through the transform.
func (t Transform) Apply(p Point) Point {
	return Point{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// ApplyVector maps a direction, ignoring translation.
func (t Transform) ApplyVector(p Point) Point {
	return Point{X: t.A*p.X + t.B*p.Y, Y: t.C*p.X + t.D*p.Y}
}

// Det is the determinant of the linear part.
func (t Transform) Det() float64 {
	return t.A*t.D - t.B*t.C
}

// Mirrored reports whether the transform flips orientation.
func (t Transform) Mirrored() bool {
	return t.Det() < 0
}

// Rotation is the rotation in degrees, in [0, 360), of the transform once
// any mirror is factored out as the first step.
func (t Transform) Rotation() float64 {
	if t.Mirrored() {
		return NormalizeDegrees(degrees(math.Atan2(-t.C, -t.A)))
	}
	return NormalizeDegrees(degrees(math.Atan2(t.C, t.A)))
}

// ScaleFactor is the uniform scale of the linear part.
func (t Transform) ScaleFactor() float64 {
	return math.Sqrt(math.Abs(t.Det()))
}

// Translation is the image of the origin.
func (t Transform) Translation() Point {
	return Point{X: t.TX, Y: t.TY}
}

// Inverse returns the inverse transform, if it exists.
func (t Transform) Inverse() (Transform, bool) {
	det := t.Det()
	if math.Abs(det) < 1e-10 {
		return Transform{}, false
	}
	inv := 1.0 / det
	return Transform{
		A:  t.D * inv,
		B:  -t.B * inv,
		TX: (t.B*t.TY - t.D*t.TX) * inv,
		C:  -t.C * inv,
		D:  t.A * inv,
		TY: (t.C*t.TX - t.A*t.TY) * inv,
	}, true
}

// Equal compares two transforms element-wise within eps.
func (t Transform) Equal(o Transform, eps float64) bool {
	return math.Abs(t.A-o.A) <= eps && math.Abs(t.B-o.B) <= eps &&
		math.Abs(t.TX-o.TX) <= eps && math.Abs(t.C-o.C) <= eps &&
		math.Abs(t.D-o.D) <= eps && math.Abs(t.TY-o.TY) <= eps
}

// rotationField maps an orientation field (pad, rectangle or text rotation)
// through t. A mirroring transform reverses the sense of the local angle.
func (t Transform) rotationField(local float64) float64 {
	if t.Mirrored() {
		return NormalizeDegrees(t.Rotation() - local)
	}
	return NormalizeDegrees(t.Rotation() + local)
}

// direction maps a direction angle (for example an arc endpoint angle).
func (t Transform) direction(deg float64) float64 {
	if t.Mirrored() {
		return NormalizeDegrees(t.Rotation() + 180 - deg)
	}
	return NormalizeDegrees(t.Rotation() + deg)
}
