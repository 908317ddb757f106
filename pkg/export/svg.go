package export

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
)

const svgFont = "sans-serif"

// SVG writes b as an SVG document. Text keeps its rotation.
func SVG(w io.Writer, b model.Accessor, opts Options) error {
	opts, cam, err := prepare(b, opts)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	c := &svgCanvas{w: bw}
	c.printf("<svg width=\"%d\" height=\"%d\" xmlns=\"http://www.w3.org/2000/svg\">\n", opts.Width, opts.Height)
	c.printf("<rect width=\"100%%\" height=\"100%%\" fill=\"%s\" />\n", Hex(opts.Background))
	render(c, cam, b, opts)
	c.printf("</svg>\n")
	if c.err != nil {
		return fmt.Errorf("failed to write svg: %w", c.err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write svg: %w", err)
	}
	return nil
}

// svgCanvas keeps the first write error and drops everything after it.
type svgCanvas struct {
	w   *bufio.Writer
	err error
}

func (c *svgCanvas) printf(format string, args ...any) {
	if c.err != nil {
		return
	}
	_, c.err = fmt.Fprintf(c.w, format, args...)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func paint(c color.Color) string {
	if c == nil {
		return "none"
	}
	return Hex(color.NRGBAModel.Convert(c).(color.NRGBA))
}

func pointList(pts []geom.Point) string {
	var sb strings.Builder
	for i, p := range pts {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(num(p.X))
		sb.WriteByte(',')
		sb.WriteString(num(p.Y))
	}
	return sb.String()
}

func escape(s string) string {
	var sb strings.Builder
	// strings.Builder never fails
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func (c *svgCanvas) polygon(pts []geom.Point, fill, stroke color.Color, width float64) {
	if len(pts) < 2 {
		return
	}
	c.printf("<polygon points=\"%s\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%s\" />\n",
		pointList(pts), paint(fill), paint(stroke), num(width))
}

func (c *svgCanvas) polyline(pts []geom.Point, stroke color.Color, width float64) {
	if len(pts) < 2 {
		return
	}
	if len(pts) == 2 {
		c.printf("<line x1=\"%s\" y1=\"%s\" x2=\"%s\" y2=\"%s\" stroke=\"%s\" stroke-width=\"%s\" stroke-linecap=\"round\" />\n",
			num(pts[0].X), num(pts[0].Y), num(pts[1].X), num(pts[1].Y), paint(stroke), num(width))
		return
	}
	c.printf("<polyline points=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"%s\" stroke-linecap=\"round\" stroke-linejoin=\"round\" />\n",
		pointList(pts), paint(stroke), num(width))
}

func (c *svgCanvas) circle(center geom.Point, r float64, fill, stroke color.Color, width float64) {
	if stroke == nil {
		c.printf("<circle cx=\"%s\" cy=\"%s\" r=\"%s\" fill=\"%s\" />\n",
			num(center.X), num(center.Y), num(r), paint(fill))
		return
	}
	c.printf("<circle cx=\"%s\" cy=\"%s\" r=\"%s\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%s\" />\n",
		num(center.X), num(center.Y), num(r), paint(fill), paint(stroke), num(width))
}

func (c *svgCanvas) text(at geom.Point, s string, size, angle float64, col color.Color) {
	x, y := num(at.X), num(at.Y)
	c.printf("<text x=\"%s\" y=\"%s\" fill=\"%s\" font-family=\"%s\" font-size=\"%s\"",
		x, y, paint(col), svgFont, num(size))
	if angle != 0 {
		c.printf(" transform=\"rotate(%s %s,%s)\"", num(angle), x, y)
	}
	c.printf(">%s</text>\n", escape(s))
}

func (c *svgCanvas) label(at geom.Point, s string) {
	c.printf("<text x=\"%s\" y=\"%s\" fill=\"%s\" font-family=\"%s\" font-size=\"9\" font-weight=\"bold\">%s</text>\n",
		num(at.X), num(at.Y), paint(labelColor), svgFont, escape(s))
}
