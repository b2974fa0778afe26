package web

import (
	"net/http"
	"strconv"

	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	clock    quartz.Clock
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	merged   *prometheus.HistogramVec
	swept    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, clock quartz.Clock) *metrics {
	m := &metrics{
		clock: clock,

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activitytracker",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "activitytracker",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		merged: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "activitytracker",
			Subsystem: "report",
			Name:      "records_collapsed",
			Help:      "Raw records folded away per reconciliation.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"stream"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "activitytracker",
			Subsystem: "retention",
			Name:      "deleted_total",
			Help:      "Records removed by manual cleanups.",
		}),
	}
	reg.MustRegister(m.requests, m.latency, m.merged, m.swept)
	return m
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := m.clock.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(m.clock.Since(start).Seconds())
	})
}
