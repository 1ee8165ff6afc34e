package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trust domains and outcomes used as label values.
const (
	domainUser    = "user"
	domainSync    = "sync"
	domainChatbot = "chatbot"

	outcomeOK        = "ok"
	outcomeMissing   = "missing"
	outcomeInvalid   = "invalid"
	outcomeRevoked   = "revoked"
	outcomeForbidden = "forbidden"
	outcomeError     = "error"
)

type Metrics struct {
	authAttempts    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	gatherer        prometheus.Gatherer
}

// NewMetrics registers the API collectors on reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plantapi", Subsystem: "auth", Name: "attempts_total",
			Help: "Bearer authentication attempts by trust domain and outcome",
		}, []string{"domain", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plantapi", Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}
	reg.MustRegister(m.authAttempts, m.requestDuration)
	return m
}

func (m *Metrics) auth(domain, outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(domain, outcome).Inc()
}

func (m *Metrics) observe(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
