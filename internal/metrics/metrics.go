// Package metrics holds the Prometheus collectors for lorekeep.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/lorekeep/internal/layout"
)

// Registry owns a private Prometheus registry and the collectors on it.
type Registry struct {
	LayoutDuration *prometheus.HistogramVec
	LayoutNodes    prometheus.Histogram
	RendersTotal   prometheus.Counter
	ExportsTotal   *prometheus.CounterVec

	StoreOperationsTotal *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every collector registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.LayoutDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lorekeep_layout_duration_seconds",
			Help:    "Time spent computing a graph layout",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"strategy"},
	)
	r.LayoutNodes = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "lorekeep_layout_nodes",
		Help:    "Number of nodes per computed layout",
		Buckets: prometheus.ExponentialBuckets(1, 4, 6),
	})
	r.RendersTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "lorekeep_scene_renders_total",
		Help: "Number of scene rebuilds",
	})
	r.ExportsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lorekeep_scene_exports_total",
			Help: "Number of images exported, by format",
		},
		[]string{"format"},
	)
	r.StoreOperationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lorekeep_store_operations_total",
			Help: "Record store operations, by operation and outcome",
		},
		[]string{"operation", "status"},
	)
	r.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lorekeep_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	r.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lorekeep_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// LayoutDone records a layout run.
func (r *Registry) LayoutDone(s layout.Strategy, nodes int, d time.Duration) {
	r.LayoutDuration.WithLabelValues(string(s)).Observe(d.Seconds())
	r.LayoutNodes.Observe(float64(nodes))
}

// Rendered records a scene rebuild.
func (r *Registry) Rendered(_, _ int) { r.RendersTotal.Inc() }

// Exported records an image export.
func (r *Registry) Exported(format string) { r.ExportsTotal.WithLabelValues(format).Inc() }

// RecordStoreOperation counts a store call. A nil err is a success.
func (r *Registry) RecordStoreOperation(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.StoreOperationsTotal.WithLabelValues(op, status).Inc()
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so path parameters do not explode cardinality.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rc := chi.RouteContext(req.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.HTTPRequestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
		r.HTTPRequestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	})
}
