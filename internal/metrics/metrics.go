// Package metrics tracks query counters and service health for the
// operational endpoints, exposed both in Prometheus text format and as
// JSON.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a dedicated Prometheus registry so the exposition
// endpoint serves exactly the service's own series.
type Metrics struct {
	registry *prometheus.Registry

	queries prometheus.Counter
	errors  prometheus.Counter
	healthy prometheus.Gauge

	// success_rate is only registered once at least one query has been
	// served, so a fresh process does not report a meaningless 0 or 1.
	successRate prometheus.Gauge

	mu          sync.Mutex
	queryCount  int64
	errorCount  int64
	healthyFlag bool
	start       time.Time

	timeNow func() time.Time
}

// New returns an initialized Metrics with uptime counting from now.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		start:    time.Now(),
		timeNow:  time.Now,
	}

	factory := promauto.With(m.registry)
	m.queries = factory.NewCounter(prometheus.CounterOpts{
		Name: "queries_total",
		Help: "Total number of queries processed.",
	})
	m.errors = factory.NewCounter(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Total number of queries that failed.",
	})
	m.healthy = factory.NewGauge(prometheus.GaugeOpts{
		Name: "healthy",
		Help: "Whether the service is healthy (1) or not (0).",
	})
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "uptime_seconds",
		Help: "Seconds since the service started.",
	}, func() float64 {
		return m.timeNow().Sub(m.start).Seconds()
	})

	m.successRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "success_rate",
		Help: "Fraction of queries that succeeded.",
	})

	return m
}

// RecordQuery counts one served query and updates the success rate.
func (m *Metrics) RecordQuery(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries.Inc()
	m.queryCount++
	if !success {
		m.errors.Inc()
		m.errorCount++
	}

	if m.queryCount == 1 {
		m.registry.MustRegister(m.successRate)
	}
	m.successRate.Set(float64(m.queryCount-m.errorCount) / float64(m.queryCount))
}

// SetHealthy records the current health state.
func (m *Metrics) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthyFlag = healthy
	if healthy {
		m.healthy.Set(1)
	} else {
		m.healthy.Set(0)
	}
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Snapshot is the JSON view of the same data the registry exposes.
type Snapshot struct {
	QueriesTotal  int64   `json:"queries_total"`
	ErrorsTotal   int64   `json:"errors_total"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Healthy       bool    `json:"healthy"`

	// SuccessRate is absent until at least one query has been served.
	SuccessRate *float64 `json:"success_rate,omitempty"`
}

// Snapshot returns the current values.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		QueriesTotal:  m.queryCount,
		ErrorsTotal:   m.errorCount,
		UptimeSeconds: m.timeNow().Sub(m.start).Seconds(),
		Healthy:       m.healthyFlag,
	}
	if m.queryCount > 0 {
		rate := float64(m.queryCount-m.errorCount) / float64(m.queryCount)
		s.SuccessRate = &rate
	}
	return s
}
