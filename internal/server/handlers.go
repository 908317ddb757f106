package server

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/export"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

type boardInfo struct {
	Format     records.Format `json:"format"`
	Unit       geom.Unit      `json:"unit"`
	YDown      bool           `json:"y_down"`
	Metadata   model.Metadata `json:"metadata"`
	Bounds     geom.Box       `json:"bounds"`
	Layers     int            `json:"layers"`
	Shapes     int            `json:"shapes"`
	Components int            `json:"components"`
	Nets       int            `json:"nets"`
	Warnings   int            `json:"warnings"`
}

type componentDetail struct {
	model.Component
	Geometry []model.Shape `json:"geometry"`
}

type netDetail struct {
	Name   string        `json:"name"`
	Shapes []model.Shape `json:"shapes"`
}

// current returns the board or answers 503 when none is loaded.
func (s *Server) current(w http.ResponseWriter) (*model.Board, bool) {
	b := s.src.Board()
	if b == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no board loaded")
		return nil, false
	}
	return b, true
}

// layerParam splits a comma separated ?layers= list.
func layerParam(r *http.Request) []string {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("layers"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// pathParam returns an unescaped URL parameter, so names holding '/' can
// be requested percent-encoded.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"board":  s.src.Board() != nil,
	})
}

func (s *Server) board(w http.ResponseWriter, r *http.Request) {
	b, ok := s.current(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, boardInfo{
		Format:     b.Format(),
		Unit:       b.Unit(),
		YDown:      b.YDown(),
		Metadata:   b.Metadata(),
		Bounds:     b.Bounds(),
		Layers:     len(b.Layers()),
		Shapes:     len(b.Shapes()),
		Components: len(b.Components()),
		Nets:       len(b.Nets()),
		Warnings:   len(b.Warnings()),
	})
}

func (s *Server) bounds(w http.ResponseWriter, r *http.Request) {
	b, ok := s.current(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, b.Bounds(layerParam(r)...))
}

func (s *Server) warnings(w http.ResponseWriter, r *http.Request) {
	b, ok := s.current(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, b.Warnings())
}

func (s *Server) layers(w http.ResponseWriter, r *http.Request) {
	b, ok := s.current(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, b.Layers())
}

func (s *Server) layerShapes(w http.ResponseWriter, r *http.Request) {
	b, ok := s.current(w)
	if !ok {
		return
	}
	id := pathParam(r, "id")
	if _, ok := b.Layer(id); !ok {
		s.respondError(w, http.StatusNotFound, "unknown layer "+strconv.Quote(id))
		return
	}
	s.respondJSON(w, http.StatusOK, b.ShapesOnLayer(id))
}

func (s *Server) shape(w http.ResponseWriter, r *http.Request) {
	b, ok := s.current(w)
	if !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "shape id must be a number")
		return
	}
	sh, ok := b.Shape(model.ShapeID(id))
	if !ok {
		s.respondError(w, http.StatusNotFound, "unknown shape "+strconv.Itoa(id))
		return
	}
	s.respondJSON(w, http.StatusOK, sh)
}

func (s *Server) components(w http.ResponseWriter, r *http.Request) {
	b, ok := s.current(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, b.FindComponents(r.URL.Query().Get("q")))
}

func (s *Server) component(w http.ResponseWriter, r *http.Request) {
	b, ok := s.current(w)
	if !ok {
		return
	}
	id := pathParam(r, "id")
	c, ok := b.Component(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "unknown component "+strconv.Quote(id))
		return
	}
	s.respondJSON(w, http.StatusOK, componentDetail{Component: c, Geometry: b.ShapesForComponent(id)})
}

func (s *Server) nets(w http.ResponseWriter, r *http.Request) {
	b, ok := s.current(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, b.FindNets(r.URL.Query().Get("q")))
}

func (s *Server) net(w http.ResponseWriter, r *http.Request) {
	b, ok := s.current(w)
	if !ok {
		return
	}
	name := pathParam(r, "name")
	for _, n := range b.Nets() {
		if n.Name == name {
			s.respondJSON(w, http.StatusOK, netDetail{Name: name, Shapes: b.ShapesForNet(name)})
			return
		}
	}
	s.respondError(w, http.StatusNotFound, "unknown net "+strconv.Quote(name))
}

// exportSVG renders the board. ?layers= limits the drawn layers,
// ?markers=false drops component markers, ?width= and ?height= size the
// canvas.
func (s *Server) exportSVG(w http.ResponseWriter, r *http.Request) {
	b, ok := s.current(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := export.DefaultOptions()
	for key, dst := range map[string]*int{"width": &opts.Width, "height": &opts.Height} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 16384 {
				s.respondError(w, http.StatusBadRequest, "invalid "+key)
				return
			}
			*dst = n
		}
	}
	if ids := layerParam(r); len(ids) > 0 {
		opts.Layers = export.NewLayerConfig()
		opts.Layers.ShowOnly(ids...)
	}
	if m := q.Get("markers"); m != "" {
		opts.Markers, _ = strconv.ParseBool(m)
	}

	var buf bytes.Buffer
	if err := export.SVG(&buf, b, opts); err != nil {
		s.logger.Error("svg export failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug("svg write aborted", zap.Error(err))
	}
}
