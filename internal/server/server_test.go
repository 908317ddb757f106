package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/loader"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
)

const fixture = "../../pkg/loader/testdata/board.brd"

func newTestServer(t *testing.T) (*Server, *httptest.Server, *loader.Result) {
	t.Helper()
	res, err := loader.New().Load(fixture)
	require.NoError(t, err)

	s := New(Static{B: res.Board},
		WithLogger(zaptest.NewLogger(t)),
		WithAllowedOrigins("http://localhost:3000"))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, res
}

func get(t *testing.T, ts *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthAndBoard(t *testing.T) {
	_, ts, _ := newTestServer(t)

	var health map[string]any
	resp := get(t, ts, "/health", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, true, health["board"])

	var info boardInfo
	resp = get(t, ts, "/api/board", &info)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "eagle", string(info.Format))
	assert.Equal(t, 4, info.Components)
	assert.Equal(t, "Test Board", info.Metadata.Title)
	assert.False(t, info.YDown)
}

func TestComponents(t *testing.T) {
	_, ts, res := newTestServer(t)

	var found []model.Component
	get(t, ts, "/api/components?q=10k", &found)
	require.Len(t, found, 1)
	assert.Equal(t, "R1", found[0].Ref)

	var detail struct {
		Ref      string           `json:"ref"`
		Geometry []map[string]any `json:"geometry"`
	}
	resp := get(t, ts, "/api/components/"+found[0].ID, &detail)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "R1", detail.Ref)
	assert.Len(t, detail.Geometry, len(res.Board.ShapesForComponent(found[0].ID)))

	resp = get(t, ts, "/api/components/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNetsAndLayers(t *testing.T) {
	_, ts, res := newTestServer(t)

	var nets []model.Net
	get(t, ts, "/api/nets?q=gnd", &nets)
	require.Len(t, nets, 1)

	var gnd netDetail
	resp := get(t, ts, "/api/nets/GND", &gnd)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, gnd.Shapes, len(res.Board.ShapesForNet("GND")))

	resp = get(t, ts, "/api/nets/%2FMISSING", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var ls []model.Layer
	get(t, ts, "/api/layers", &ls)
	assert.Len(t, ls, len(res.Board.Layers()))

	var shapes []map[string]any
	resp = get(t, ts, "/api/layers/top_copper/shapes", &shapes)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, shapes, len(res.Board.ShapesOnLayer("top_copper")))

	resp = get(t, ts, "/api/layers/ghost/shapes", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShapes(t *testing.T) {
	_, ts, _ := newTestServer(t)

	var sh map[string]any
	resp := get(t, ts, "/api/shapes/0", &sh)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, sh, "kind")

	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/shapes/abc", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, ts, "/api/shapes/99999", nil).StatusCode)
}

func TestExportSVG(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/export.svg?layers=top_copper&markers=false&width=300&height=200")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(body), `<svg width="300" height="200"`))
	assert.NotContains(t, string(body), ">R1</text>")

	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/export.svg?width=big", nil).StatusCode)
}

func TestNoBoard(t *testing.T) {
	ts := httptest.NewServer(New(Static{}).Handler())
	defer ts.Close()

	assert.Equal(t, http.StatusServiceUnavailable, get(t, ts, "/api/board", nil).StatusCode)
	assert.Equal(t, http.StatusOK, get(t, ts, "/health", nil).StatusCode)
}

func TestCORS(t *testing.T) {
	_, ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/board", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetrics(t *testing.T) {
	s, ts, res := newTestServer(t)

	get(t, ts, "/api/board", nil)
	get(t, ts, "/api/components/nope", nil)
	s.Metrics().ObserveLoad(res)
	s.Metrics().ObserveLoadError("broken.kicad_pcb")

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().HTTPRequests.WithLabelValues("GET", "/api/board", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().HTTPRequests.WithLabelValues("GET", "/api/components/{id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().BoardLoads.WithLabelValues("eagle", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().BoardLoads.WithLabelValues("kicad", "error")))
	assert.Equal(t, float64(len(res.Board.Shapes())), testutil.ToFloat64(s.Metrics().BoardShapes))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `otb_http_requests_total{method="GET",route="/api/board",status="200"} 1`)
	assert.Contains(t, string(body), "otb_board_load_duration_seconds")
}

func TestListenAndServeStops(t *testing.T) {
	s := New(Static{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
