// Package export draws a board model to SVG and PNG images.
//
// Both writers walk the same shape stream: visible layers in draw order,
// then component markers. PNG text is drawn unrotated.
package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
)

// Options controls an export.
type Options struct {
	Width  int
	Height int
	// Margin is kept free around the fitted board, in pixels.
	Margin     float64
	Background color.NRGBA
	// Layers selects the drawn layers; nil uses each layer's default.
	Layers *LayerConfig
	// Camera overrides fitting, e.g. to export the current view of a session.
	Camera *Camera
	// Markers draws a crosshair and the reference at each component.
	Markers bool
}

// DefaultOptions returns a 2000x2000 export with a 50px margin.
func DefaultOptions() Options {
	return Options{
		Width:      2000,
		Height:     2000,
		Margin:     50,
		Background: DefaultBackground,
		Markers:    true,
	}
}

const (
	markerSize   = 6.0
	labelOffset  = 8.0
	lightenRatio = 0.5
)

// canvas receives shapes already mapped to pixel space. A nil fill or
// stroke is not painted.
type canvas interface {
	polygon(pts []geom.Point, fill, stroke color.Color, width float64)
	polyline(pts []geom.Point, stroke color.Color, width float64)
	circle(center geom.Point, r float64, fill, stroke color.Color, width float64)
	text(at geom.Point, s string, size, angle float64, col color.Color)
	label(at geom.Point, s string)
}

type renderer struct {
	c   canvas
	cam *Camera
}

// prepare fills unset options and settles the camera.
func prepare(b model.Accessor, opts Options) (Options, *Camera, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return opts, nil, fmt.Errorf("invalid image size %dx%d", opts.Width, opts.Height)
	}
	if opts.Layers == nil {
		opts.Layers = LayerConfigFor(b)
	}
	if opts.Background == (color.NRGBA{}) {
		opts.Background = DefaultBackground
	}
	if opts.Camera != nil {
		cam := *opts.Camera
		cam.Width, cam.Height = opts.Width, opts.Height
		return opts, &cam, nil
	}
	cam := NewCamera(opts.Width, opts.Height, b.YDown())
	cam.Fit(opts.Layers.VisibleBounds(b), opts.Margin)
	return opts, cam, nil
}

func render(c canvas, cam *Camera, b model.Accessor, opts Options) {
	r := &renderer{c: c, cam: cam}
	for _, l := range opts.Layers.VisibleLayers(b) {
		col := layerColor(l.Color)
		for _, s := range b.ShapesOnLayer(l.ID) {
			r.shape(s.Primitive, col)
		}
	}
	if !opts.Markers {
		return
	}
	for _, comp := range b.Components() {
		p := cam.WorldToScreen(comp.Placement.Position)
		c.polyline([]geom.Point{{X: p.X - markerSize, Y: p.Y}, {X: p.X + markerSize, Y: p.Y}}, markerColor, 1)
		c.polyline([]geom.Point{{X: p.X, Y: p.Y - markerSize}, {X: p.X, Y: p.Y + markerSize}}, markerColor, 1)
		c.label(geom.Point{X: p.X + labelOffset, Y: p.Y - labelOffset}, comp.Ref)
	}
}

func (r *renderer) points(pts []geom.Point) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = r.cam.WorldToScreen(p)
	}
	return out
}

// stroke is a board width in pixels, never thinner than one pixel.
func (r *renderer) stroke(w float64) float64 {
	return math.Max(1, r.cam.Length(w))
}

func (r *renderer) shape(p geom.Primitive, col color.NRGBA) {
	switch s := p.(type) {
	case geom.Segment:
		r.c.polyline(r.points([]geom.Point{s.Start, s.End}), col, r.stroke(s.Width))
	case geom.Arc:
		r.c.polyline(r.points(s.Points(arcSteps(s.Sweep))), col, r.stroke(s.Width))
	case geom.Circle:
		center, radius := r.cam.WorldToScreen(s.Center), r.cam.Length(s.Radius)
		if s.Filled {
			r.c.circle(center, radius, col, nil, 0)
		} else {
			r.c.circle(center, radius, nil, col, r.stroke(s.Width))
		}
	case geom.Rect:
		var fill color.Color
		if s.Filled {
			fill = col
		}
		r.c.polygon(r.points(s.Corners()), fill, col, r.stroke(s.Width))
	case geom.Polygon:
		var fill color.Color
		if s.Filled {
			fill = Lighten(col, lightenRatio)
		}
		r.c.polygon(r.points(s.Points), fill, col, r.stroke(s.Width))
	case geom.Pad:
		r.pad(s, col)
	case geom.Via:
		center := r.cam.WorldToScreen(s.Center)
		d := s.Diameter
		if d <= 0 {
			d = math.Max(s.Drill, 0.1)
		}
		r.c.circle(center, r.cam.Length(d/2), nil, viaColor, 1)
		if s.Drill > 0 {
			r.c.circle(center, r.cam.Length(s.Drill/2), drillColor, nil, 0)
		}
	case geom.Text:
		if strings.TrimSpace(s.Content) == "" {
			return
		}
		r.c.text(r.cam.WorldToScreen(s.Origin), s.Content, r.cam.Length(s.Size), r.cam.Angle(s.Rotation), col)
	}
}

// pad draws surface pads filled and through-hole pads as outlines with
// their drill.
func (r *renderer) pad(p geom.Pad, col color.NRGBA) {
	var fill color.Color
	if p.Drill == 0 {
		fill = col
	}
	center := r.cam.WorldToScreen(p.Center)
	if p.Shape == geom.PadCircle {
		r.c.circle(center, r.cam.Length(math.Max(p.Size.W, 0.1)/2), fill, col, 1)
	} else {
		r.c.polygon(r.points(padOutline(p)), fill, col, 1)
	}
	if p.Drill > 0 {
		r.c.circle(center, r.cam.Length(p.Drill/2), drillColor, nil, 0)
	}
}

// padOutline is a stadium for oval pads and the rotated envelope otherwise.
func padOutline(p geom.Pad) []geom.Point {
	if p.Shape != geom.PadOval {
		return p.Outline()
	}
	long, short, dir := p.Size.W, p.Size.H, p.Rotation
	if short > long {
		long, short = short, long
		dir += 90
	}
	h, radius := (long-short)/2, short/2
	s, c := math.Sincos(dir * math.Pi / 180)
	ends := []geom.Point{
		{X: p.Center.X + c*h, Y: p.Center.Y + s*h},
		{X: p.Center.X - c*h, Y: p.Center.Y - s*h},
	}
	const steps = 8
	pts := make([]geom.Point, 0, 2*(steps+1))
	for i, end := range ends {
		arc := geom.Arc{Center: end, Radius: radius, StartAngle: dir - 90 + 180*float64(i), Sweep: 180}
		pts = append(pts, arc.Points(steps)...)
	}
	return pts
}

// arcSteps flattens arcs at about ten degrees per chord.
func arcSteps(sweep float64) int {
	return max(4, int(math.Ceil(math.Abs(sweep)/10)))
}

// WriteFile exports b to path, choosing SVG or PNG by extension.
func WriteFile(path string, b model.Accessor, opts Options) error {
	var write func(io.Writer, model.Accessor, Options) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		write = SVG
	case ".png":
		write = PNG
	default:
		return fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := write(f, b, opts); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
