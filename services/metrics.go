// services/metrics.go
package services

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. A nil *Metrics is valid and records nothing,
// which keeps tests free of collector setup.
type Metrics struct {
	Registry *prometheus.Registry

	submissions  *prometheus.CounterVec
	decisions    *prometheus.CounterVec
	points       prometheus.Counter
	stamps       prometheus.Counter
	pending      *prometheus.GaugeVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vip_passport",
			Subsystem: "engine",
			Name:      "submissions_total",
			Help:      "Submissions received, by kind and whether a mission matched.",
		}, []string{"kind", "matched"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vip_passport",
			Subsystem: "engine",
			Name:      "decisions_total",
			Help:      "Approval workflow decisions, by kind and outcome.",
		}, []string{"kind", "status"}),
		points: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vip_passport",
			Subsystem: "ledger",
			Name:      "points_credited_total",
			Help:      "Points credited to users.",
		}),
		stamps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vip_passport",
			Subsystem: "ledger",
			Name:      "stamp_value_minted_total",
			Help:      "Total value of stamps minted.",
		}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vip_passport",
			Subsystem: "engine",
			Name:      "pending_submissions",
			Help:      "Submissions waiting for an admin decision.",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vip_passport",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vip_passport",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
	}
	m.Registry.MustRegister(
		m.submissions,
		m.decisions,
		m.points,
		m.stamps,
		m.pending,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry for the /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by matched route template, not raw path.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		m.httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *Metrics) observeSubmission(kind string, matched bool) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, strconv.FormatBool(matched)).Inc()
}

func (m *Metrics) observeDecision(kind, status string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) addPoints(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.points.Add(float64(n))
}

func (m *Metrics) addStamps(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.stamps.Add(float64(n))
}

func (m *Metrics) setPending(kind string, n int64) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(kind).Set(float64(n))
}
