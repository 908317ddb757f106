package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
)

// circleSteps is the polygon resolution of rasterized circles.
const circleSteps = 48

// PNG writes b as a PNG image. Text is drawn unrotated.
func PNG(w io.Writer, b model.Accessor, opts Options) error {
	img, err := Rasterize(b, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// Rasterize draws b into a new image.
func Rasterize(b model.Accessor, opts Options) (*image.RGBA, error) {
	opts, cam, err := prepare(b, opts)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	c := &rasterCanvas{img: img, z: vector.NewRasterizer(0, 0), faces: make(map[int]font.Face)}
	defer c.close()
	render(c, cam, b, opts)
	return img, nil
}

var (
	textFontOnce sync.Once
	textFont     *opentype.Font
)

func loadTextFont() *opentype.Font {
	textFontOnce.Do(func() {
		// an embedded font that fails to parse leaves textFont nil and
		// text falls back to the fixed face
		textFont, _ = opentype.Parse(goregular.TTF)
	})
	return textFont
}

type rasterCanvas struct {
	img   *image.RGBA
	z     *vector.Rasterizer
	faces map[int]font.Face
}

func (c *rasterCanvas) close() {
	for _, f := range c.faces {
		f.Close()
	}
}

// fill paints the union of closed paths. Paths are rasterized in a box
// clipped to the image so each call only touches the pixels it covers.
func (c *rasterCanvas) fill(col color.Color, paths ...[]geom.Point) {
	box := geom.EmptyBox()
	for _, p := range paths {
		box = box.Union(geom.BoxOf(p...))
	}
	if box.IsEmpty() {
		return
	}
	r := image.Rect(
		int(math.Floor(box.Min.X)), int(math.Floor(box.Min.Y)),
		int(math.Ceil(box.Max.X))+1, int(math.Ceil(box.Max.Y))+1,
	).Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}

	c.z.Reset(r.Dx(), r.Dy())
	c.z.DrawOp = draw.Over
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for _, p := range paths {
		if len(p) < 3 {
			continue
		}
		c.z.MoveTo(float32(p[0].X-ox), float32(p[0].Y-oy))
		for _, q := range p[1:] {
			c.z.LineTo(float32(q.X-ox), float32(q.Y-oy))
		}
		c.z.ClosePath()
	}
	c.z.Draw(c.img, r, image.NewUniform(col), image.Point{})
}

// line paints one stroked segment with round ends.
func (c *rasterCanvas) line(a, b geom.Point, col color.Color, width float64) {
	hw := width / 2
	d := b.Sub(a)
	if l := math.Hypot(d.X, d.Y); l > 0 {
		n := geom.Point{X: -d.Y / l * hw, Y: d.X / l * hw}
		c.fill(col, []geom.Point{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)})
	}
	if width > 1.5 {
		c.fill(col, disc(a, hw))
		c.fill(col, disc(b, hw))
	}
}

func disc(center geom.Point, r float64) []geom.Point {
	pts := make([]geom.Point, circleSteps)
	for i := range pts {
		s, co := math.Sincos(2 * math.Pi * float64(i) / circleSteps)
		pts[i] = geom.Point{X: center.X + r*co, Y: center.Y + r*s}
	}
	return pts
}

func reversed(pts []geom.Point) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func (c *rasterCanvas) polygon(pts []geom.Point, fill, stroke color.Color, width float64) {
	if len(pts) < 2 {
		return
	}
	if fill != nil {
		c.fill(fill, pts)
	}
	if stroke != nil {
		for i := range pts {
			c.line(pts[i], pts[(i+1)%len(pts)], stroke, width)
		}
	}
}

func (c *rasterCanvas) polyline(pts []geom.Point, stroke color.Color, width float64) {
	for i := 1; i < len(pts); i++ {
		c.line(pts[i-1], pts[i], stroke, width)
	}
}

func (c *rasterCanvas) circle(center geom.Point, r float64, fill, stroke color.Color, width float64) {
	if fill != nil {
		c.fill(fill, disc(center, r))
	}
	if stroke != nil {
		outer := r + width/2
		inner := math.Max(r-width/2, 0)
		// the inner path winds the other way and cuts the hole
		c.fill(stroke, disc(center, outer), reversed(disc(center, inner)))
	}
}

func (c *rasterCanvas) face(size float64) font.Face {
	px := int(math.Round(size))
	if px < 1 {
		return nil
	}
	if f, ok := c.faces[px]; ok {
		return f
	}
	var f font.Face = basicfont.Face7x13
	if tf := loadTextFont(); tf != nil {
		if of, err := opentype.NewFace(tf, &opentype.FaceOptions{Size: float64(px), DPI: 72, Hinting: font.HintingFull}); err == nil {
			f = of
		}
	}
	c.faces[px] = f
	return f
}

func (c *rasterCanvas) drawString(f font.Face, at geom.Point, s string, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: f,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(at.X * 64), Y: fixed.Int26_6(at.Y * 64)},
	}
	d.DrawString(s)
}

// text ignores angle.
func (c *rasterCanvas) text(at geom.Point, s string, size, _ float64, col color.Color) {
	if f := c.face(size); f != nil {
		c.drawString(f, at, s, col)
	}
}

func (c *rasterCanvas) label(at geom.Point, s string) {
	c.drawString(basicfont.Face7x13, at, s, labelColor)
}
