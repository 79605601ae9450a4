package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry builds the process registry with the standard runtime
// collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes the registry over HTTP.
func Handler(reg *prometheus.Registry) gin.HandlerFunc {
	h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// HTTPMetrics records per-request counters and latency.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewHTTPMetrics registers the HTTP collectors on reg.
func NewHTTPMetrics(reg *prometheus.Registry) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.inflight)
	return m
}

// GinMiddleware instruments every request. Unmatched routes are grouped
// under a single label to keep cardinality bounded.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.inflight.Inc()
		c.Next()
		m.inflight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requests.WithLabelValues(c.Request.Method, route, status).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// AuthMetrics counts session transitions and controller operations. All
// record methods are safe on a nil receiver so callers never guard.
type AuthMetrics struct {
	sessionEvents   *prometheus.CounterVec
	operations      *prometheus.CounterVec
	guardActions    *prometheus.CounterVec
	bootstrapStatus *prometheus.GaugeVec
}

// NewAuthMetrics registers the auth collectors on reg.
func NewAuthMetrics(reg *prometheus.Registry) *AuthMetrics {
	m := &AuthMetrics{
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_session_events_total",
			Help: "Session change events by type.",
		}, []string{"event"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Controller operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		guardActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_guard_decisions_total",
			Help: "Route guard decisions by action.",
		}, []string{"action"}),
		bootstrapStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "auth_bootstrap_status",
			Help: "Admin bootstrap phase, 1 for the current status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.sessionEvents, m.operations, m.guardActions, m.bootstrapStatus)
	return m
}

func (m *AuthMetrics) RecordSessionEvent(event string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(event).Inc()
}

func (m *AuthMetrics) RecordOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *AuthMetrics) RecordGuardDecision(action string) {
	if m == nil {
		return
	}
	m.guardActions.WithLabelValues(action).Inc()
}

func (m *AuthMetrics) RecordBootstrapStatus(status string) {
	if m == nil {
		return
	}
	m.bootstrapStatus.Reset()
	m.bootstrapStatus.WithLabelValues(status).Set(1)
}
