package unify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/layers"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

const eps = 1e-9

func pad(number string, x, y, rot float64) geom.Pad {
	return geom.Pad{Number: number, Center: geom.Pt(x, y), Size: geom.Size{W: 1, H: 0.5}, Shape: geom.PadRect, Rotation: rot}
}

// eagleRecords is a small board in the EAGLE native layer numbering.
func eagleRecords() *records.RawBoardRecords {
	return &records.RawBoardRecords{
		Format: records.FormatEagle,
		Unit:   geom.UnitMillimeter,
		Layers: []records.Layer{
			{NativeID: "1", Name: "Top", Visible: true},
			{NativeID: "16", Name: "Bottom", Visible: true},
			{NativeID: "21", Name: "tPlace", Visible: true},
			{NativeID: "27", Name: "tValues", Visible: false},
		},
		Nets: []records.Net{{Name: "GND"}, {Name: "VCC"}},
		Packages: []records.Package{{
			Name: "lib:P",
			Items: []records.Item{
				{Layer: "1", Shape: pad("1", 1, 0, 0)},
				{Layer: "1", Shape: pad("2", -1, 0, 90)},
				{Layer: "1", Shape: pad("3", 0, 2, 30)},
				{Layer: "21", Shape: geom.Segment{Start: geom.Pt(-2, -1), End: geom.Pt(2, -1), Width: 0.1}},
				{Layer: "25", Shape: geom.Text{Content: ">NAME", Origin: geom.Pt(0, 1), Size: 1}},
				{Layer: "27", Shape: geom.Text{Content: "val: >VALUE", Origin: geom.Pt(0, -2), Size: 1}},
			},
		}},
		Placements: []records.Placement{
			{Ref: "U1", Value: "A", Package: "lib:P", Position: geom.Pt(10, 20), Rotation: 90, Mirrored: true,
				Side: records.SideBottom, Layer: "16", PadNets: map[string]string{"1": "GND", "2": "VCC"}},
			{Ref: "U2", Value: "B", Package: "lib:P", Position: geom.Pt(30, 20), Rotation: 45,
				Side: records.SideTop, Layer: "1"},
		},
		Signals: []records.Item{
			{Layer: "1", Net: "GND", Shape: geom.Segment{Start: geom.Pt(0, 0), End: geom.Pt(5, 0), Width: 0.3}},
			{Layer: "16", Net: "GND", Shape: geom.Segment{Start: geom.Pt(5, 0), End: geom.Pt(5, 5), Width: 0.3}},
			{Layer: "1", Net: "VCC", Shape: geom.Segment{Start: geom.Pt(0, 10), End: geom.Pt(5, 10), Width: 0.3}},
			{Layer: "1", Shape: geom.Segment{Start: geom.Pt(0, 30), End: geom.Pt(5, 30), Width: 0.3}},
		},
	}
}

func build(t *testing.T, recs *records.RawBoardRecords) *model.Board {
	t.Helper()
	return Build(recs, layers.Default(), WithLogger(zaptest.NewLogger(t)))
}

func componentByRef(t *testing.T, b *model.Board, ref string) model.Component {
	t.Helper()
	for _, c := range b.Components() {
		if c.Ref == ref {
			return c
		}
	}
	t.Fatalf("component %s not found", ref)
	return model.Component{}
}

func padsOf(b *model.Board, componentID string) map[string]model.Shape {
	out := map[string]model.Shape{}
	for _, s := range b.ShapesForComponent(componentID) {
		if p, ok := s.Primitive.(geom.Pad); ok {
			out[p.Number] = s
		}
	}
	return out
}

func TestMirroredPlacement(t *testing.T) {
	b := build(t, eagleRecords())
	u1 := componentByRef(t, b, "U1")

	assert.True(t, u1.Placement.Mirrored)
	assert.Equal(t, records.SideBottom, u1.Placement.Side)

	pads := padsOf(b, u1.ID)
	p1 := pads["1"].Primitive.(geom.Pad)
	// mirror (1,0) -> (-1,0), rotate 90 -> (0,-1), translate -> (10,19)
	assert.InDelta(t, 10, p1.Center.X, eps)
	assert.InDelta(t, 19, p1.Center.Y, eps)
	assert.True(t, p1.Mirrored)
	assert.Equal(t, "bottom_copper", pads["1"].Layer)

	// the reverse order would land on (9,20)
	assert.False(t, p1.Center.Near(geom.Pt(9, 20), 1e-6))
}

func TestLayerFlipOnlyForMirrored(t *testing.T) {
	b := build(t, eagleRecords())

	for _, s := range b.ShapesForComponent(componentByRef(t, b, "U1").ID) {
		if s.Kind() == geom.KindSegment {
			assert.Equal(t, "bottom_silk", s.Layer)
		}
	}
	for _, s := range b.ShapesForComponent(componentByRef(t, b, "U2").ID) {
		switch s.Kind() {
		case geom.KindSegment:
			assert.Equal(t, "top_silk", s.Layer)
		case geom.KindPad:
			assert.Equal(t, "top_copper", s.Layer)
		}
	}
}

func TestRotationRoundTrip(t *testing.T) {
	recs := eagleRecords()
	b := build(t, recs)
	tpl, _ := recs.Package("lib:P")

	local := map[string]float64{}
	for _, it := range tpl.Items {
		if p, ok := it.Shape.(geom.Pad); ok {
			local[p.Number] = p.Rotation
		}
	}

	for _, c := range b.Components() {
		for number, s := range padsOf(b, c.ID) {
			got := s.Primitive.(geom.Pad).Rotation
			want := c.Placement.Rotation + local[number]
			if c.Placement.Mirrored {
				want = c.Placement.Rotation - local[number]
			}
			assert.True(t, geom.AnglesEqual(got, want, 1e-6), "%s pad %s: got %v want %v", c.Ref, number, got, want)
		}
	}
}

func TestPlacementRecoveredFromPads(t *testing.T) {
	recs := eagleRecords()
	b := build(t, recs)
	tpl, _ := recs.Package("lib:P")

	for _, c := range b.Components() {
		pads := padsOf(b, c.ID)
		var src, dst []geom.Point
		for _, it := range tpl.Items {
			if p, ok := it.Shape.(geom.Pad); ok {
				src = append(src, p.Center)
				dst = append(dst, pads[p.Number].Primitive.(geom.Pad).Center)
			}
		}
		fit, err := geom.FitAffine(src, dst)
		require.NoError(t, err)
		assert.True(t, fit.Equal(c.Placement.Transform(), 1e-6), c.Ref)
		assert.Equal(t, c.Placement.Mirrored, fit.Mirrored(), c.Ref)
		assert.True(t, geom.AnglesEqual(c.Placement.Rotation, fit.Rotation(), 1e-6), c.Ref)
	}
}

func TestNetGrouping(t *testing.T) {
	b := build(t, eagleRecords())

	gnd := b.ShapesForNet("GND")
	// two wires plus U1's pad 1
	require.Len(t, gnd, 3)
	var wires int
	for _, s := range gnd {
		assert.Equal(t, "GND", s.Net)
		if s.Component == "" {
			wires++
		}
	}
	assert.Equal(t, 2, wires)

	// U2 has no pad nets
	for _, s := range b.ShapesForComponent(componentByRef(t, b, "U2").ID) {
		assert.Empty(t, s.Net)
	}
	assert.Len(t, b.ShapesForNet("VCC"), 2)
	assert.Empty(t, b.ShapesForNet("N$1"))
}

func TestPlaceholders(t *testing.T) {
	b := build(t, eagleRecords())

	var texts []string
	for _, s := range b.ShapesForComponent(componentByRef(t, b, "U2").ID) {
		if txt, ok := s.Primitive.(geom.Text); ok {
			texts = append(texts, txt.Content)
		}
	}
	assert.ElementsMatch(t, []string{"U2", "val: B"}, texts)
}

func TestSmashedPlacementSkipsPlaceholders(t *testing.T) {
	recs := eagleRecords()
	recs.Placements[1].Smashed = true
	recs.Placements[1].Texts = []records.Item{
		{Layer: "25", Shape: geom.Text{Content: "U2", Origin: geom.Pt(30, 25), Size: 1}},
	}
	b := build(t, recs)

	var texts []geom.Text
	for _, s := range b.ShapesForComponent(componentByRef(t, b, "U2").ID) {
		if txt, ok := s.Primitive.(geom.Text); ok {
			texts = append(texts, txt)
		}
	}
	// ">NAME" is dropped; "val: >VALUE" is not a bare placeholder
	require.Len(t, texts, 2)
	assert.Equal(t, "val: B", texts[0].Content)
	assert.Equal(t, geom.Pt(30, 25), texts[1].Origin)
}

func TestMissingPackage(t *testing.T) {
	recs := eagleRecords()
	recs.Placements = append(recs.Placements, records.Placement{
		Ref: "X9", Package: "lib:GONE", Position: geom.Pt(1, 2), Layer: "1", Location: "element[X9]",
	})
	b := build(t, recs)

	assert.Len(t, b.Components(), 3)
	assert.Equal(t, 1, records.CountKind(b.Warnings(), records.UnresolvedReference))

	x9 := componentByRef(t, b, "X9")
	assert.Empty(t, b.ShapesForComponent(x9.ID))
	assert.Equal(t, geom.BoxOf(geom.Pt(1, 2)), x9.Bounds)

	var w records.Warning
	for _, w = range b.Warnings() {
		if w.Kind == records.UnresolvedReference {
			break
		}
	}
	assert.Equal(t, records.StageUnify, w.Stage)
	assert.Equal(t, "element[X9]", w.Location)
	assert.Contains(t, w.Message, "lib:GONE")

	// the other components are complete
	assert.Len(t, b.ShapesForComponent(componentByRef(t, b, "U1").ID), 6)
}

func TestUnknownLayerSynthesized(t *testing.T) {
	recs := eagleRecords()
	recs.Graphics = append(recs.Graphics, records.Item{
		Layer: "200", Shape: geom.Circle{Center: geom.Pt(3, 3), Radius: 1}, Location: "plain/circle[1]",
	})
	recs.Graphics = append(recs.Graphics, records.Item{
		Layer: "200", Shape: geom.Circle{Center: geom.Pt(4, 4), Radius: 1},
	})
	b := build(t, recs)

	l, ok := b.Layer("eagle:200")
	require.True(t, ok)
	assert.True(t, l.Synthesized)
	assert.Equal(t, layers.FallbackColor("200", records.FormatEagle), l.Color)
	assert.Len(t, b.ShapesOnLayer("eagle:200"), 2)
	assert.Equal(t, 1, records.CountKind(b.Warnings(), records.UnresolvedReference))
}

func TestEveryShapeLayerResolves(t *testing.T) {
	b := build(t, eagleRecords())
	for _, s := range b.Shapes() {
		if s.Layer == "" {
			continue
		}
		_, ok := b.Layer(s.Layer)
		assert.True(t, ok, "shape %d on dangling layer %q", s.ID, s.Layer)
	}
}

func TestDeclaredVisibility(t *testing.T) {
	b := build(t, eagleRecords())

	values, ok := b.Layer("top_values")
	require.True(t, ok)
	assert.False(t, values.Visible)

	top, _ := b.Layer("top_copper")
	assert.True(t, top.Visible)
}

func TestComponentBounds(t *testing.T) {
	b := build(t, eagleRecords())
	for _, c := range b.Components() {
		want := geom.EmptyBox()
		for _, s := range b.ShapesForComponent(c.ID) {
			want = want.Union(s.Bounds())
		}
		assert.Equal(t, want, c.Bounds, c.Ref)
	}
}

func TestIdempotent(t *testing.T) {
	a := build(t, eagleRecords())
	b := build(t, eagleRecords())

	assert.Equal(t, a.Layers(), b.Layers())
	assert.Equal(t, a.Shapes(), b.Shapes())
	assert.Equal(t, a.Components(), b.Components())
	assert.Equal(t, a.Nets(), b.Nets())
	assert.Equal(t, a.Warnings(), b.Warnings())
}

func TestComponentIDs(t *testing.T) {
	recs := &records.RawBoardRecords{
		Format: records.FormatKiCad,
		Unit:   geom.UnitMillimeter,
		YDown:  true,
		Placements: []records.Placement{
			{Ref: "R1", UUID: "6B1A5D2E-8C4F-4D8A-9F1E-2A3B4C5D6E7F"},
			{Ref: "R2", UUID: "6b1a5d2e-8c4f-4d8a-9f1e-2a3b4c5d6e7f"},
			{Ref: "R3", UUID: "not-a-uuid"},
			{Ref: "R3"},
		},
	}
	b := Build(recs, nil)

	comps := b.Components()
	require.Len(t, comps, 4)
	assert.Equal(t, "6b1a5d2e-8c4f-4d8a-9f1e-2a3b4c5d6e7f", comps[0].ID)
	seen := map[string]bool{}
	for _, c := range comps {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
	again := Build(recs, nil).Components()
	for i := range comps {
		assert.Equal(t, comps[i].ID, again[i].ID)
	}
}

func TestTemplateLayerInheritsPlacement(t *testing.T) {
	recs := &records.RawBoardRecords{
		Format:   records.FormatKiCad,
		Unit:     geom.UnitMillimeter,
		YDown:    true,
		Packages: []records.Package{{Name: "fp#0", Items: []records.Item{{Shape: geom.Circle{Radius: 1}}}}},
		Placements: []records.Placement{
			{Ref: "J1", Package: "fp#0", Layer: "B.Cu", Side: records.SideBottom},
		},
	}
	b := Build(recs, nil)
	shapes := b.ShapesOnLayer("bottom_copper")
	require.Len(t, shapes, 1)
	assert.NotEmpty(t, shapes[0].Component)
}

func TestParseWarningsCarried(t *testing.T) {
	recs := eagleRecords()
	recs.Warn(records.UnsupportedConstruct, "plain/dimension", "<dimension> is not supported")
	b := build(t, recs)

	ws := b.Warnings()
	require.NotEmpty(t, ws)
	assert.Equal(t, records.StageParse, ws[0].Stage)
}

func TestSummary(t *testing.T) {
	b := build(t, eagleRecords())
	assert.Contains(t, Summary(b), "2 components")
}

func TestCheckPlacements(t *testing.T) {
	recs := eagleRecords()
	recs.Placements = append(recs.Placements, records.Placement{
		Ref: "X9", Package: "lib:GONE", Position: geom.Pt(1, 2), Layer: "1",
	})
	b := build(t, recs)

	checks := CheckPlacements(recs, b)
	require.Len(t, checks, 3)

	for _, c := range checks[:2] {
		require.NoError(t, c.Err, c.Ref)
		assert.True(t, c.OK(1e-6), c.Ref)
		assert.True(t, c.Fitted.Equal(c.Placement.Transform(), 1e-6), c.Ref)
		assert.Equal(t, 7, c.Anchors, c.Ref)
	}
	assert.Equal(t, "X9", checks[2].Ref)
	assert.Error(t, checks[2].Err)
	assert.False(t, checks[2].OK(1e-6))
}

func TestCheckPlacementsFlagsDisagreement(t *testing.T) {
	recs := eagleRecords()
	checks := CheckPlacements(recs, build(t, recs))
	require.Len(t, checks, 2)

	// claim U2 sits unrotated although its geometry says 45 degrees
	c := checks[1]
	require.True(t, c.OK(1e-6))
	c.Placement.Rotation = 0
	assert.False(t, c.OK(1e-6))
	assert.InDelta(t, 45, c.Fitted.Rotation(), 1e-6)
}

func TestAnchorsTooFew(t *testing.T) {
	recs := &records.RawBoardRecords{
		Format:   records.FormatEagle,
		Layers:   []records.Layer{{NativeID: "1", Name: "Top", Visible: true}},
		Packages: []records.Package{{Name: "one", Items: []records.Item{{Layer: "1", Shape: pad("1", 0, 0, 0)}}}},
		Placements: []records.Placement{
			{Ref: "TP1", Package: "one", Position: geom.Pt(3, 4), Layer: "1"},
		},
	}
	checks := CheckPlacements(recs, build(t, recs))
	require.Len(t, checks, 1)
	assert.ErrorIs(t, checks[0].Err, ErrTooFewAnchors)
	assert.Equal(t, 1, checks[0].Anchors)
}
