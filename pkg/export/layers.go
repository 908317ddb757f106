package export

import (
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
)

// LayerConfig controls which layers are drawn. Layers without an explicit
// setting take the fallback, which starts out visible.
type LayerConfig struct {
	visible  map[string]bool
	fallback bool
}

// NewLayerConfig creates a configuration with every layer visible.
func NewLayerConfig() *LayerConfig {
	return &LayerConfig{visible: make(map[string]bool), fallback: true}
}

// LayerConfigFor starts from each layer's default visibility on b.
func LayerConfigFor(b model.Accessor) *LayerConfig {
	lc := NewLayerConfig()
	for _, l := range b.Layers() {
		lc.visible[l.ID] = l.Visible
	}
	return lc
}

// SetVisible sets the visibility of one layer.
func (lc *LayerConfig) SetVisible(id string, visible bool) {
	lc.visible[id] = visible
}

// IsVisible reports whether a layer is drawn.
func (lc *LayerConfig) IsVisible(id string) bool {
	if v, ok := lc.visible[id]; ok {
		return v
	}
	return lc.fallback
}

// HideAll hides every layer.
func (lc *LayerConfig) HideAll() {
	lc.visible = make(map[string]bool)
	lc.fallback = false
}

// ShowAll shows every layer.
func (lc *LayerConfig) ShowAll() {
	lc.visible = make(map[string]bool)
	lc.fallback = true
}

// ShowOnly shows only the given layers.
func (lc *LayerConfig) ShowOnly(ids ...string) {
	lc.HideAll()
	for _, id := range ids {
		lc.SetVisible(id, true)
	}
}

// Apply overlays explicit settings, such as those restored from a session.
func (lc *LayerConfig) Apply(settings map[string]bool) {
	for id, v := range settings {
		lc.visible[id] = v
	}
}

// Snapshot returns the visibility of every layer of b.
func (lc *LayerConfig) Snapshot(b model.Accessor) map[string]bool {
	out := make(map[string]bool, len(b.Layers()))
	for _, l := range b.Layers() {
		out[l.ID] = lc.IsVisible(l.ID)
	}
	return out
}

// VisibleLayers returns the drawn layers of b in draw order.
func (lc *LayerConfig) VisibleLayers(b model.Accessor) []model.Layer {
	var out []model.Layer
	for _, l := range b.Layers() {
		if lc.IsVisible(l.ID) {
			out = append(out, l)
		}
	}
	return out
}

// VisibleBounds is the extent of the drawn geometry, or the fallback box
// when nothing is drawn.
func (lc *LayerConfig) VisibleBounds(b model.Accessor) geom.Box {
	ls := lc.VisibleLayers(b)
	if len(ls) == 0 {
		return model.FallbackBounds
	}
	ids := make([]string, len(ls))
	for i, l := range ls {
		ids[i] = l.ID
	}
	return b.Bounds(ids...)
}
