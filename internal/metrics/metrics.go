// Package metrics exposes Prometheus collectors for HTTP traffic and the auth core.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers never collide.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	loginTotal          *prometheus.CounterVec
	resolveTotal        *prometheus.CounterVec
}

func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		resolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_resolve_total",
			Help: "Identity resolutions by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.loginTotal,
		m.resolveTotal,
	} {
		if err := registerCollector(m.registry, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func registerCollector(r prometheus.Registerer, c prometheus.Collector) error {
	if err := r.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveLogin counts a login attempt. A nil receiver is a no-op.
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.loginTotal.WithLabelValues(result).Inc()
}

// ObserveResolve counts an identity resolution. A nil receiver is a no-op.
func (m *Metrics) ObserveResolve(result string) {
	if m == nil {
		return
	}
	m.resolveTotal.WithLabelValues(result).Inc()
}
