package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/export"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/loader"
)

func boardPath(t *testing.T) string {
	t.Helper()
	p, err := filepath.Abs("../../pkg/loader/testdata/board.brd")
	require.NoError(t, err)
	return p
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view"+Ext)
	s := &Session{
		File:            "/boards/main.brd",
		Scale:           12.5,
		OffsetX:         -40,
		OffsetY:         310,
		LayerVisibility: map[string]bool{"top_copper": true, "top_silk": false},
		Search:          "R1",
		NetSearch:       "gnd",
	}
	require.NoError(t, s.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	// field names match existing .pvproj files
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"file", "scale", "offset_x", "offset_y", "layer_visibility", "search", "net_search"} {
		assert.Contains(t, raw, key)
	}
}

func TestLoadDefaultsAndRelativeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial"+Ext)
	require.NoError(t, os.WriteFile(path, []byte(`{"file": "boards/x.kicad_pcb", "scale": 0}`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "boards", "x.kicad_pcb"), s.File)
	assert.Equal(t, DefaultScale, s.Scale)
	assert.Equal(t, DefaultOffset, s.OffsetX)
	assert.NotNil(t, s.LayerVisibility)
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad"+Ext)
	require.NoError(t, os.WriteFile(bad, []byte(`{"scale": "big"}`), 0o644))

	_, err := Load(bad)
	assert.Error(t, err)
	_, err = Load(filepath.Join(dir, "none"+Ext))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCameraAndCapture(t *testing.T) {
	cam := export.NewCamera(640, 480, false)
	cam.Fit(geom.Box{Min: geom.Pt(0, 0), Max: geom.Pt(64, 48)}, 0)
	cam.Pan(5, -7)

	s := Capture("x.brd", nil, cam, nil, "u1", "")
	assert.Equal(t, cam.Zoom, s.Scale)

	back := s.Camera(640, 480, false)
	assert.Equal(t, cam, back)
	p := geom.Pt(3, 4)
	assert.Equal(t, cam.WorldToScreen(p), back.WorldToScreen(p))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eagle"+Ext)

	s := New(boardPath(t))
	s.Search = "10k"
	s.NetSearch = "gnd"
	s.LayerVisibility = map[string]bool{"top_copper": false, "gone": true}
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	r, err := loaded.Open(loader.New())
	require.NoError(t, err)

	require.Len(t, r.Components, 1)
	assert.Equal(t, "R1", r.Components[0].Ref)
	require.Len(t, r.Nets, 1)
	assert.Equal(t, "GND", r.Nets[0].Name)

	assert.False(t, r.Layers.IsVisible("top_copper"))
	snap := r.Layers.Snapshot(r.Board)
	assert.Len(t, snap, len(r.Board.Layers()))
	assert.NotContains(t, snap, "gone")

	// the restored state saves back unchanged
	again := Capture(loaded.File, r.Board, loaded.Camera(100, 100, false), r.Layers, loaded.Search, loaded.NetSearch)
	assert.Equal(t, false, again.LayerVisibility["top_copper"])
	assert.Equal(t, loaded.Scale, again.Scale)
}

func TestOpenErrors(t *testing.T) {
	_, err := New("").Open(loader.New())
	assert.ErrorIs(t, err, ErrNoBoard)

	_, err = New(filepath.Join(t.TempDir(), "missing.brd")).Open(loader.New())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
