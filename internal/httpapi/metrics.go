package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shayne-snap/llmvram/internal/vram"
)

type metrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	inflight        prometheus.Gauge
	classifications *prometheus.CounterVec
}

// newMetrics registers the API collectors on reg.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "llmvram",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "llmvram",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method", "status"},
		),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "llmvram",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		}),
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "llmvram",
				Name:      "classifications_total",
				Help:      "Models classified by the API, by run status",
			},
			[]string{"status"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.inflight, m.classifications)
	return m
}

func (m *metrics) observe(statuses ...vram.RunStatus) {
	for _, s := range statuses {
		m.classifications.WithLabelValues(s.String()).Inc()
	}
}

// middleware instruments requests. The path label is the chi route pattern, read after routing.
func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inflight.Inc()
		defer m.inflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := routePattern(r)
		label := strconv.Itoa(status)
		m.requests.WithLabelValues(path, r.Method, label).Inc()
		m.duration.WithLabelValues(path, r.Method, label).Observe(time.Since(start).Seconds())
	})
}

// unmatchedRoute labels requests that did not match a route, keeping the path label bounded.
const unmatchedRoute = "unmatched"

// routePattern returns the chi route pattern, or unmatchedRoute.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}
