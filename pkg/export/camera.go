package export

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
)

// Zoom limits in pixels per board unit.
const (
	MinZoom = 0.1
	MaxZoom = 1000.0
)

// Camera maps board coordinates to image pixels:
//
//	sx = OffsetX + x*Zoom
//	sy = OffsetY - y*Zoom   (InvertY)
//	sy = OffsetY + y*Zoom   (otherwise)
//
// The offset form is the one session files store.
type Camera struct {
	// Zoom level (pixels per board unit)
	Zoom float64

	OffsetX float64
	OffsetY float64

	// Image dimensions (pixels)
	Width  int
	Height int

	// InvertY flips the vertical axis. Boards with an upward Y axis need
	// it; boards already in screen orientation do not.
	InvertY bool
}

// NewCamera creates a camera for an image of the given size. yDown is the
// board's own axis orientation.
func NewCamera(width, height int, yDown bool) *Camera {
	return &Camera{
		Zoom:    1,
		OffsetX: 100,
		OffsetY: 100,
		Width:   width,
		Height:  height,
		InvertY: !yDown,
	}
}

func (c *Camera) ySign() float64 {
	if c.InvertY {
		return -1
	}
	return 1
}

// WorldToScreen converts board coordinates to pixels.
func (c *Camera) WorldToScreen(p geom.Point) geom.Point {
	return geom.Point{
		X: c.OffsetX + p.X*c.Zoom,
		Y: c.OffsetY + c.ySign()*p.Y*c.Zoom,
	}
}

// ScreenToWorld converts pixels to board coordinates.
func (c *Camera) ScreenToWorld(s geom.Point) geom.Point {
	return geom.Point{
		X: (s.X - c.OffsetX) / c.Zoom,
		Y: c.ySign() * (s.Y - c.OffsetY) / c.Zoom,
	}
}

// Length scales a board distance to pixels.
func (c *Camera) Length(d float64) float64 {
	return d * c.Zoom
}

// Angle converts a counter-clockwise board angle to the clockwise-positive
// angle of image space.
func (c *Camera) Angle(deg float64) float64 {
	if c.InvertY {
		return -deg
	}
	return deg
}

// Pan moves the view by a pixel delta.
func (c *Camera) Pan(dx, dy float64) {
	c.OffsetX += dx
	c.OffsetY += dy
}

// ZoomAt multiplies the zoom by factor, keeping the board point under the
// pixel at keep in place.
func (c *Camera) ZoomAt(factor float64, keep geom.Point) {
	before := c.ScreenToWorld(keep)
	c.Zoom = clampZoom(c.Zoom * factor)
	after := c.WorldToScreen(before)
	c.Pan(keep.X-after.X, keep.Y-after.Y)
}

// CenterOn zooms to at least minZoom and centers the view on p.
func (c *Camera) CenterOn(p geom.Point, minZoom float64) {
	c.Zoom = clampZoom(math.Max(c.Zoom, minZoom))
	c.OffsetX = float64(c.Width)/2 - p.X*c.Zoom
	c.OffsetY = float64(c.Height)/2 - c.ySign()*p.Y*c.Zoom
}

// Fit scales and centers the view so box fills the image, leaving margin
// pixels free on every side. A degenerate box is treated as one unit wide.
func (c *Camera) Fit(box geom.Box, margin float64) {
	w, h := box.Width(), box.Height()
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	availW := math.Max(float64(c.Width)-2*margin, 1)
	availH := math.Max(float64(c.Height)-2*margin, 1)
	c.Zoom = clampZoom(math.Min(availW/w, availH/h))
	c.CenterOn(box.Center(), 0)
}

// Visible returns the board area covered by the image.
func (c *Camera) Visible() geom.Box {
	return geom.BoxOf(
		c.ScreenToWorld(geom.Point{}),
		c.ScreenToWorld(geom.Point{X: float64(c.Width), Y: float64(c.Height)}),
	)
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(z, MaxZoom))
}
