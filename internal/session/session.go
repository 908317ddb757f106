// Package session saves and restores viewer sessions (.pvproj files): the
// board path plus view state. Restoring a session parses the board again.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/export"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/loader"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
)

// Ext is the session file extension.
const Ext = ".pvproj"

// Default view of a fresh session.
const (
	DefaultScale  = 1.0
	DefaultOffset = 100.0
)

// ErrNoBoard is returned when a session names no board file.
var ErrNoBoard = errors.New("session has no board file")

// Session is the persisted state. LayerVisibility is keyed by canonical
// layer id.
type Session struct {
	File            string          `json:"file"`
	Scale           float64         `json:"scale"`
	OffsetX         float64         `json:"offset_x"`
	OffsetY         float64         `json:"offset_y"`
	LayerVisibility map[string]bool `json:"layer_visibility"`
	Search          string          `json:"search"`
	NetSearch       string          `json:"net_search"`
}

// New starts a session for a board file with the default view.
func New(file string) *Session {
	return &Session{
		File:            file,
		Scale:           DefaultScale,
		OffsetX:         DefaultOffset,
		OffsetY:         DefaultOffset,
		LayerVisibility: map[string]bool{},
	}
}

// Capture records the current view of a board.
func Capture(file string, b model.Accessor, cam *export.Camera, lc *export.LayerConfig, search, netSearch string) *Session {
	s := New(file)
	if cam != nil {
		s.Scale, s.OffsetX, s.OffsetY = cam.Zoom, cam.OffsetX, cam.OffsetY
	}
	if lc != nil {
		s.LayerVisibility = lc.Snapshot(b)
	}
	s.Search, s.NetSearch = search, netSearch
	return s
}

// Load reads a session file. Missing fields keep their defaults.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	s := New("")
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%s: invalid session: %w", path, err)
	}
	if s.Scale <= 0 {
		s.Scale = DefaultScale
	}
	if s.LayerVisibility == nil {
		s.LayerVisibility = map[string]bool{}
	}
	if s.File != "" && !filepath.IsAbs(s.File) {
		s.File = filepath.Join(filepath.Dir(path), s.File)
	}
	return s, nil
}

// Save writes the session to path, replacing any previous file whole.
func (s *Session) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Camera rebuilds the stored view for an image of the given size.
func (s *Session) Camera(width, height int, yDown bool) *export.Camera {
	cam := export.NewCamera(width, height, yDown)
	cam.Zoom, cam.OffsetX, cam.OffsetY = s.Scale, s.OffsetX, s.OffsetY
	return cam
}

// Layers applies the stored visibility over the board defaults. Layers the
// board no longer has are ignored.
func (s *Session) Layers(b model.Accessor) *export.LayerConfig {
	lc := export.LayerConfigFor(b)
	for id, v := range s.LayerVisibility {
		if _, ok := b.Layer(id); ok {
			lc.SetVisible(id, v)
		}
	}
	return lc
}

// Restored is a session with its board parsed again.
type Restored struct {
	Session    *Session
	Board      *model.Board
	Layers     *export.LayerConfig
	Components []model.Component
	Nets       []model.Net
}

// Open parses the session's board and reapplies the view state. Searches
// are rerun against the new board.
func (s *Session) Open(l *loader.Loader) (*Restored, error) {
	if s.File == "" {
		return nil, ErrNoBoard
	}
	res, err := l.Load(s.File)
	if err != nil {
		return nil, err
	}
	return &Restored{
		Session:    s,
		Board:      res.Board,
		Layers:     s.Layers(res.Board),
		Components: res.Board.FindComponents(s.Search),
		Nets:       res.Board.FindNets(s.NetSearch),
	}, nil
}
