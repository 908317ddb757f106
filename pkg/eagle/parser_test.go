package eagle

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

const eps = 1e-9

func parseTestBoard(t *testing.T) *records.RawBoardRecords {
	t.Helper()
	recs, err := ParseFile("testdata/board.brd")
	require.NoError(t, err)
	return recs
}

func TestParseBoardHeader(t *testing.T) {
	recs := parseTestBoard(t)

	assert.Equal(t, records.FormatEagle, recs.Format)
	assert.Equal(t, geom.UnitMillimeter, recs.Unit)
	assert.False(t, recs.YDown)
	assert.Equal(t, "9.6.2", recs.Metadata.Version)
	assert.Equal(t, "Test Board", recs.Metadata.Title)
	assert.Equal(t, "B", recs.Metadata.Revision)
}

func TestParseLayers(t *testing.T) {
	recs := parseTestBoard(t)

	require.Len(t, recs.Layers, 10)
	assert.Equal(t, "1", recs.Layers[0].NativeID)
	assert.Equal(t, "Top", recs.Layers[0].Name)
	assert.Equal(t, "signal", recs.Layers[0].Type)
	assert.Equal(t, "4", recs.Layers[0].Color)

	byID := map[string]records.Layer{}
	for _, l := range recs.Layers {
		byID[l.NativeID] = l
	}
	assert.False(t, byID["27"].Visible)
	assert.Equal(t, "Assembly", byID["200"].Name)
	assert.Empty(t, byID["200"].Type)
}

func TestParsePackages(t *testing.T) {
	recs := parseTestBoard(t)

	require.Len(t, recs.Packages, 2)
	r0805, ok := recs.Package("rcl:R0805")
	require.True(t, ok)
	assert.Equal(t, "rcl", r0805.Library)
	require.Len(t, r0805.Items, 5)

	var pads []geom.Pad
	var texts []string
	for _, it := range r0805.Items {
		switch s := it.Shape.(type) {
		case geom.Pad:
			assert.Equal(t, "1", it.Layer)
			pads = append(pads, s)
		case geom.Text:
			texts = append(texts, s.Content)
		}
	}
	require.Len(t, pads, 2)
	assert.Equal(t, "1", pads[0].Number)
	assert.Equal(t, geom.PadRect, pads[0].Shape)
	assert.InDelta(t, -0.95, pads[0].Center.X, eps)
	assert.Equal(t, geom.Size{W: 1.3, H: 1.5}, pads[0].Size)
	assert.Zero(t, pads[0].Drill)
	assert.Equal(t, []string{">NAME", ">VALUE"}, texts)

	hdr, ok := recs.Package("con:HDR2")
	require.True(t, ok)
	require.Len(t, hdr.Items, 5)
}

func TestParseThroughHolePads(t *testing.T) {
	recs := parseTestBoard(t)
	hdr, _ := recs.Package("con:HDR2")

	var pads []geom.Pad
	for _, it := range hdr.Items {
		if p, ok := it.Shape.(geom.Pad); ok {
			assert.Equal(t, LayerPads, it.Layer)
			pads = append(pads, p)
		}
	}
	require.Len(t, pads, 2)

	assert.Equal(t, geom.PadRect, pads[0].Shape)
	assert.InDelta(t, 1.8, pads[0].Size.W, eps)
	assert.InDelta(t, 1.0, pads[0].Drill, eps)

	// zero diameter falls back to 1.5x drill; long pads are twice as wide
	assert.Equal(t, geom.PadOval, pads[1].Shape)
	assert.InDelta(t, 3.0, pads[1].Size.W, eps)
	assert.InDelta(t, 1.5, pads[1].Size.H, eps)
	assert.InDelta(t, 90, pads[1].Rotation, eps)
}

func TestParseCurvedPolygon(t *testing.T) {
	recs := parseTestBoard(t)
	hdr, _ := recs.Package("con:HDR2")

	var poly *geom.Polygon
	var circle *geom.Circle
	for _, it := range hdr.Items {
		switch s := it.Shape.(type) {
		case geom.Polygon:
			poly = &s
		case geom.Circle:
			circle = &s
		}
	}
	require.NotNil(t, poly)
	assert.True(t, poly.Filled)
	assert.Len(t, poly.Points, 3+curveSegments-1)
	assert.Equal(t, geom.Pt(-1, -1.5), poly.Points[0])

	require.NotNil(t, circle)
	assert.True(t, circle.Filled)
}

func TestParsePlain(t *testing.T) {
	recs := parseTestBoard(t)

	require.Len(t, recs.Graphics, 6)
	outline := 0
	for _, it := range recs.Graphics {
		switch s := it.Shape.(type) {
		case geom.Segment:
			assert.Equal(t, LayerOutline, it.Layer)
			outline++
		case geom.Circle:
			if it.Layer == LayerHoles {
				assert.InDelta(t, 1.6, s.Radius, eps)
				assert.Equal(t, geom.Pt(45, 35), s.Center)
			} else {
				assert.Equal(t, "200", it.Layer)
			}
		}
	}
	assert.Equal(t, 4, outline)

	require.Len(t, recs.Texts, 1)
	text := recs.Texts[0].Shape.(geom.Text)
	assert.Equal(t, "HELLO", text.Content)
	assert.InDelta(t, 1.778, text.Size, eps)
}

func TestParseElements(t *testing.T) {
	recs := parseTestBoard(t)

	require.Len(t, recs.Placements, 4)
	r1 := recs.Placements[0]
	assert.Equal(t, "R1", r1.Ref)
	assert.Equal(t, "10k", r1.Value)
	assert.Equal(t, "rcl:R0805", r1.Package)
	assert.Equal(t, geom.Pt(10, 20), r1.Position)
	assert.False(t, r1.Mirrored)
	assert.Equal(t, records.SideTop, r1.Side)
	assert.Equal(t, LayerTop, r1.Layer)

	r2 := recs.Placements[1]
	assert.True(t, r2.Mirrored)
	// MR90 turns clockwise once mirrored
	assert.InDelta(t, -90, r2.Rotation, eps)
	assert.Equal(t, records.SideBottom, r2.Side)
	assert.Equal(t, LayerBottom, r2.Layer)

	j1 := recs.Placements[2]
	assert.True(t, j1.Smashed)
	assert.InDelta(t, 180, j1.Rotation, eps)
	// VALUE is display="off"
	require.Len(t, j1.Texts, 1)
	name := j1.Texts[0].Shape.(geom.Text)
	assert.Equal(t, "J1", name.Content)
	assert.Equal(t, geom.Pt(30, 13), name.Origin)
	assert.Equal(t, "25", j1.Texts[0].Layer)

	assert.Equal(t, "missing:SOIC8", recs.Placements[3].Package)
}

func TestParseSignals(t *testing.T) {
	recs := parseTestBoard(t)

	names := make([]string, 0, len(recs.Nets))
	for _, n := range recs.Nets {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"GND", "VCC", "N$3"}, names)

	require.Len(t, recs.Signals, 6)
	count := map[string]int{}
	for _, it := range recs.Signals {
		count[it.Net]++
	}
	assert.Equal(t, 4, count["GND"])
	assert.Equal(t, 1, count["VCC"])
	assert.Equal(t, 1, count["N$3"])

	var via *records.Item
	var pour *geom.Polygon
	var arc *geom.Arc
	for i, it := range recs.Signals {
		switch s := it.Shape.(type) {
		case geom.Via:
			via = &recs.Signals[i]
		case geom.Polygon:
			pour = &s
		case geom.Arc:
			arc = &s
		}
	}
	require.NotNil(t, via)
	assert.Equal(t, LayerVias, via.Layer)
	assert.InDelta(t, 0.8, via.Shape.(geom.Via).Diameter, eps)

	require.NotNil(t, pour)
	assert.True(t, pour.Filled)

	require.NotNil(t, arc)
	assert.InDelta(t, 90, arc.Sweep, eps)
	assert.True(t, arc.StartPoint().Near(geom.Pt(20, 20.95), 1e-6))
	assert.True(t, arc.EndPoint().Near(geom.Pt(25, 25.95), 1e-6))
}

func TestContactRefs(t *testing.T) {
	recs := parseTestBoard(t)

	assert.Equal(t, map[string]string{"1": "VCC", "2": "GND"}, recs.Placements[0].PadNets)
	assert.Equal(t, map[string]string{"1": "VCC", "2": "N$3"}, recs.Placements[1].PadNets)
	assert.Equal(t, map[string]string{"1": "VCC", "2": "GND"}, recs.Placements[2].PadNets)
	assert.Empty(t, recs.Placements[3].PadNets)
}

func TestParseWarnings(t *testing.T) {
	recs := parseTestBoard(t)

	require.Len(t, recs.Warnings, 2)
	assert.Equal(t, 1, records.CountKind(recs.Warnings, records.UnsupportedConstruct))
	assert.Equal(t, 1, records.CountKind(recs.Warnings, records.UnresolvedReference))
	for _, w := range recs.Warnings {
		assert.Equal(t, records.StageParse, w.Stage)
		switch w.Kind {
		case records.UnsupportedConstruct:
			assert.Equal(t, "board/plain/dimension", w.Location)
		case records.UnresolvedReference:
			assert.Contains(t, w.Message, "R99")
		}
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		location string
		message  string
	}{
		{
			name:    "empty",
			input:   "",
			message: "no root element",
		},
		{
			name:     "wrong root",
			input:    `<kicad version="1"/>`,
			location: "kicad",
			message:  "expected <eagle>",
		},
		{
			name:    "s-expression",
			input:   `(kicad_pcb (version 20221018))`,
			message: "no root element",
		},
		{
			name:     "truncated",
			input:    "<eagle>\n<drawing>\n<board>",
			location: "line 3",
			message:  "invalid XML",
		},
		{
			name:     "schematic",
			input:    `<eagle><drawing><schematic/></drawing></eagle>`,
			location: "eagle/drawing",
			message:  "schematic",
		},
		{
			name:     "missing coordinate",
			input:    `<eagle><drawing><board><plain><wire x1="0" y1="0" x2="1" width="0.1" layer="21"/></plain></board></drawing></eagle>`,
			location: "board/plain/wire[1]",
			message:  `"y2"`,
		},
		{
			name:     "non-numeric coordinate",
			input:    `<eagle><drawing><board><elements><element name="R1" library="a" package="b" x="ten" y="0"/></elements></board></drawing></eagle>`,
			location: "board/elements/element[R1]",
			message:  "not numeric",
		},
		{
			name:     "missing layer",
			input:    `<eagle><drawing><board><plain><circle x="0" y="0" radius="1" width="0"/></plain></board></drawing></eagle>`,
			location: "board/plain/circle[1]",
			message:  `"layer"`,
		},
		{
			name:     "bad rotation",
			input:    `<eagle><drawing><board><elements><element name="R1" library="a" package="b" x="0" y="0" rot="X90"/></elements></board></drawing></eagle>`,
			location: "board/elements/element[R1]",
			message:  "invalid rotation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := ParseString(tt.input)
			require.Error(t, err)
			assert.Nil(t, recs)

			var mal *records.MalformedDocumentError
			require.True(t, errors.As(err, &mal), "expected MalformedDocumentError, got %T: %v", err, err)
			assert.Equal(t, records.FormatEagle, mal.Format)
			assert.Equal(t, tt.location, mal.Location)
			assert.Contains(t, mal.Error(), tt.message)
		})
	}
}

func TestParseMinimalBoard(t *testing.T) {
	recs, err := ParseString(`<eagle version="6.0"><drawing><board/></drawing></eagle>`)
	require.NoError(t, err)
	assert.Empty(t, recs.Placements)
	assert.Empty(t, recs.Warnings)
	assert.Equal(t, "6.0", recs.Metadata.Version)
}

func TestUnknownSignalChild(t *testing.T) {
	doc := `<eagle><drawing><board><signals><signal name="S">
<wire x1="0" y1="0" x2="1" y2="0" width="0.1" layer="1"/>
<teardrop x="0" y="0"/>
</signal></signals></board></drawing></eagle>`
	recs, err := ParseString(doc)
	require.NoError(t, err)
	require.Len(t, recs.Warnings, 1)
	assert.Equal(t, records.UnsupportedConstruct, recs.Warnings[0].Kind)
	assert.True(t, strings.HasSuffix(recs.Warnings[0].Location, "/teardrop"))
	assert.Len(t, recs.Signals, 1)
}

func TestMirroredAttributeAngle(t *testing.T) {
	doc := `<eagle><drawing><board><elements>
<element name="U1" library="lib" package="P" value="" x="0" y="0" rot="MR90" smashed="yes">
<attribute name="NAME" x="1" y="2" size="1" layer="26" rot="MR30"/>
</element>
</elements></board></drawing></eagle>`
	recs, err := ParseString(doc)
	require.NoError(t, err)
	require.Len(t, recs.Placements, 1)
	u1 := recs.Placements[0]
	assert.InDelta(t, -90, u1.Rotation, eps)
	require.Len(t, u1.Texts, 1)
	text := u1.Texts[0].Shape.(geom.Text)
	assert.True(t, text.Mirrored)
	assert.InDelta(t, -30, text.Rotation, eps)
}
