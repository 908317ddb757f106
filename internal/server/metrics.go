package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/loader"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
)

// Metrics holds the Prometheus collectors of one server. Each instance has
// its own registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	BoardLoads        *prometheus.CounterVec
	BoardLoadDuration prometheus.Histogram
	BoardWarnings     *prometheus.GaugeVec
	BoardShapes       prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		BoardLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "board_loads_total",
				Help:      "Board loads by format and result",
			},
			[]string{"format", "result"},
		),
		BoardLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "board_load_duration_seconds",
				Help:      "Time to parse and unify a board",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
		),
		BoardWarnings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "board_warnings",
				Help:      "Warnings of the served board by kind",
			},
			[]string{"kind"},
		),
		BoardShapes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "board_shapes",
				Help:      "Shapes of the served board",
			},
		),
	}
	m.registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.BoardLoads,
		m.BoardLoadDuration,
		m.BoardWarnings,
		m.BoardShapes,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveLoad records a successful load.
func (m *Metrics) ObserveLoad(res *loader.Result) {
	m.BoardLoads.WithLabelValues(string(res.Format), "ok").Inc()
	m.BoardLoadDuration.Observe(res.Duration.Seconds())
	m.ObserveBoard(res.Board)
}

// ObserveBoard sets the gauges describing the served board.
func (m *Metrics) ObserveBoard(b *model.Board) {
	m.BoardWarnings.Reset()
	for _, w := range b.Warnings() {
		m.BoardWarnings.WithLabelValues(string(w.Kind)).Inc()
	}
	m.BoardShapes.Set(float64(len(b.Shapes())))
}

// ObserveLoadError records a failed load.
func (m *Metrics) ObserveLoadError(path string) {
	format, err := loader.DetectFormat(path)
	if err != nil {
		format = "unknown"
	}
	m.BoardLoads.WithLabelValues(string(format), "error").Inc()
}

// Middleware counts requests by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
