package export

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

func testBoard(t *testing.T, yDown bool) *model.Board {
	t.Helper()
	bl := model.NewBuilder(records.FormatEagle, geom.UnitMillimeter, yDown, model.Metadata{})
	bl.AddLayer(model.Layer{ID: "top_copper", Color: "#c83434", Visible: true, Order: 0})
	bl.AddLayer(model.Layer{ID: "top_silk", Color: "#f2eda1", Visible: true, Order: 21})
	bl.AddLayer(model.Layer{ID: "top_names", Color: "#123456", Visible: false, Order: 25})

	add := func(s model.Shape) model.ShapeID {
		id, err := bl.AddShape(s)
		require.NoError(t, err)
		return id
	}
	add(model.Shape{Layer: "top_copper", Net: "GND",
		Primitive: geom.Segment{Start: geom.Pt(0, 0), End: geom.Pt(100, 0), Width: 0.5}})
	add(model.Shape{Layer: "top_copper", Net: "GND",
		Primitive: geom.Polygon{Points: []geom.Point{geom.Pt(60, 30), geom.Pt(90, 30), geom.Pt(90, 45)}, Filled: true}})
	pad := add(model.Shape{Layer: "top_copper", Component: "c1",
		Primitive: geom.Pad{Number: "1", Center: geom.Pt(10, 10), Size: geom.Size{W: 4, H: 4}, Shape: geom.PadRect}})
	add(model.Shape{Layer: "top_copper",
		Primitive: geom.Via{Center: geom.Pt(50, 25), Diameter: 1, Drill: 0.5}})
	add(model.Shape{Layer: "top_silk",
		Primitive: geom.Text{Content: "A<B", Origin: geom.Pt(20, 40), Size: 2, Rotation: 90}})
	add(model.Shape{Layer: "top_names",
		Primitive: geom.Circle{Center: geom.Pt(500, 500), Radius: 1}})
	require.NoError(t, bl.AddComponent(model.Component{
		ID: "c1", Ref: "R1", Shapes: []model.ShapeID{pad},
		Placement: model.Placement{Position: geom.Pt(30, 10)},
	}))
	return bl.Build()
}

func TestCameraFit(t *testing.T) {
	cam := NewCamera(2000, 2000, false)
	cam.Fit(geom.Box{Min: geom.Pt(0, 0), Max: geom.Pt(100, 50)}, 50)

	assert.InDelta(t, 19, cam.Zoom, 1e-9)
	center := cam.WorldToScreen(geom.Pt(50, 25))
	assert.InDelta(t, 1000, center.X, 1e-9)
	assert.InDelta(t, 1000, center.Y, 1e-9)

	// Y up: the lower left corner lands bottom left
	corner := cam.WorldToScreen(geom.Pt(0, 0))
	assert.InDelta(t, 50, corner.X, 1e-9)
	assert.InDelta(t, 1475, corner.Y, 1e-9)

	back := cam.ScreenToWorld(corner)
	assert.True(t, back.Near(geom.Pt(0, 0), 1e-9))
}

func TestCameraYDown(t *testing.T) {
	cam := NewCamera(200, 200, true)
	cam.Fit(geom.Box{Min: geom.Pt(0, 0), Max: geom.Pt(10, 10)}, 0)

	top := cam.WorldToScreen(geom.Pt(0, 0))
	assert.InDelta(t, 0, top.Y, 1e-9)
	assert.Equal(t, 90.0, cam.Angle(90))

	cam.InvertY = true
	assert.Equal(t, -90.0, cam.Angle(90))
}

func TestCameraZoomAt(t *testing.T) {
	cam := NewCamera(800, 600, false)
	cam.Fit(geom.Box{Min: geom.Pt(-10, -10), Max: geom.Pt(10, 10)}, 0)

	keep := geom.Pt(123, 456)
	before := cam.ScreenToWorld(keep)
	cam.ZoomAt(2, keep)
	assert.True(t, cam.ScreenToWorld(keep).Near(before, 1e-9))

	cam.ZoomAt(1e9, keep)
	assert.Equal(t, MaxZoom, cam.Zoom)
	cam.ZoomAt(1e-12, keep)
	assert.Equal(t, MinZoom, cam.Zoom)

	cam.CenterOn(geom.Pt(5, 5), 40)
	assert.Equal(t, 40.0, cam.Zoom)
	c := cam.WorldToScreen(geom.Pt(5, 5))
	assert.InDelta(t, 400, c.X, 1e-9)
	assert.InDelta(t, 300, c.Y, 1e-9)
}

func TestLayerConfig(t *testing.T) {
	b := testBoard(t, false)

	lc := LayerConfigFor(b)
	assert.True(t, lc.IsVisible("top_copper"))
	assert.False(t, lc.IsVisible("top_names"))
	assert.True(t, lc.IsVisible("never_declared"))
	assert.Len(t, lc.VisibleLayers(b), 2)

	lc.ShowOnly("top_silk")
	assert.Equal(t, map[string]bool{"top_copper": false, "top_silk": true, "top_names": false}, lc.Snapshot(b))

	lc.Apply(map[string]bool{"top_names": true})
	assert.True(t, lc.IsVisible("top_names"))
	assert.Equal(t, geom.Pt(501, 501), lc.VisibleBounds(b).Max)

	lc.HideAll()
	assert.Empty(t, lc.VisibleLayers(b))
	assert.Equal(t, model.FallbackBounds, lc.VisibleBounds(b))

	lc.ShowAll()
	assert.Len(t, lc.VisibleLayers(b), 3)
}

func TestColors(t *testing.T) {
	c, err := ParseColor("#c83434")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 200, G: 52, B: 52, A: 255}, c)
	assert.Equal(t, "#e39999", Hex(Lighten(c, 0.5)))

	c, err = ParseColor("d864ff66")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x66), c.A)

	for _, bad := range []string{"", "#fff", "#gggggg"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
	assert.Equal(t, fallbackLayerColor, layerColor("nope"))
}

func TestSVG(t *testing.T) {
	b := testBoard(t, false)

	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, b, DefaultOptions()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, `<svg width="2000" height="2000"`))
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))
	assert.Contains(t, out, `fill="#101015"`)
	// filled polygon with a lightened layer color
	assert.Contains(t, out, `fill="#e39999" stroke="#c83434"`)
	// via ring and drill
	assert.Contains(t, out, `stroke="#ffffff"`)
	// Y-up board: counter-clockwise text turns the other way on screen
	assert.Contains(t, out, `transform="rotate(-90.00`)
	assert.Contains(t, out, "A&lt;B")
	assert.Contains(t, out, ">R1</text>")
	// hidden layer
	assert.NotContains(t, out, "#123456")
}

func TestSVGOptions(t *testing.T) {
	b := testBoard(t, true)

	opts := DefaultOptions()
	opts.Markers = false
	opts.Layers = NewLayerConfig()
	opts.Layers.ShowOnly("top_silk")
	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, b, opts))
	out := buf.String()

	assert.NotContains(t, out, "R1")
	assert.NotContains(t, out, "#c83434")
	assert.Contains(t, out, `transform="rotate(90.00`)

	opts.Width = 0
	assert.Error(t, SVG(&buf, b, opts))
}

func TestPNG(t *testing.T) {
	b := testBoard(t, false)
	opts := DefaultOptions()
	opts.Width, opts.Height = 400, 300

	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, b, opts))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())

	bg := color.NRGBAModel.Convert(img.At(1, 1)).(color.NRGBA)
	assert.Equal(t, DefaultBackground, bg)

	cam := NewCamera(opts.Width, opts.Height, false)
	cam.Fit(LayerConfigFor(b).VisibleBounds(b), opts.Margin)
	p := cam.WorldToScreen(geom.Pt(10, 10))
	pad := color.NRGBAModel.Convert(img.At(int(p.X), int(p.Y))).(color.NRGBA)
	assert.InDelta(t, 200, int(pad.R), 2)
	assert.InDelta(t, 52, int(pad.G), 2)
	assert.InDelta(t, 52, int(pad.B), 2)
}

func TestWriteFile(t *testing.T) {
	b := testBoard(t, false)
	dir := t.TempDir()

	for _, name := range []string{"board.svg", "board.PNG"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, b, DefaultOptions()))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}

	err := WriteFile(filepath.Join(dir, "board.gbr"), b, DefaultOptions())
	assert.ErrorContains(t, err, "unsupported export format")
}

func TestWriteFileFailureLeavesNoFile(t *testing.T) {
	b := testBoard(t, false)
	opts := DefaultOptions()
	opts.Width = 0

	for _, name := range []string{"board.svg", "board.png"} {
		path := filepath.Join(t.TempDir(), name)
		err := WriteFile(path, b, opts)
		assert.ErrorContains(t, err, "invalid image size")
		assert.NoFileExists(t, path)
	}
}

func TestPadOutlineOval(t *testing.T) {
	p := geom.Pad{Center: geom.Pt(1, 2), Size: geom.Size{W: 4, H: 2}, Shape: geom.PadOval, Rotation: 90}
	box := geom.BoxOf(padOutline(p)...)
	want := p.Bounds()
	assert.InDelta(t, want.Min.X, box.Min.X, 1e-9)
	assert.InDelta(t, want.Max.Y, box.Max.Y, 1e-9)
	assert.InDelta(t, 4, box.Height(), 1e-9)
	assert.InDelta(t, 2, box.Width(), 1e-9)
}
