// Package metrics exposes Prometheus instrumentation for conversation runs.
//
// A Collector owns its registry so several collectors can coexist in one
// process (tests, embedded servers) without duplicate registration panics.
// All recording methods are safe on a nil *Collector.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "roundtable"

// Turn outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Session outcome labels.
const (
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
	SessionFailed    = "failed"
)

// Collector records turn, backend and session metrics.
type Collector struct {
	registry *prometheus.Registry

	turnsTotal      *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	sessionsTotal   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// Options configures a Collector.
type Options struct {
	Namespace string
	// RuntimeCollectors adds the Go runtime and process collectors.
	RuntimeCollectors bool
}

// NewCollector creates a Collector backed by a fresh registry.
func NewCollector(optFns ...func(o *Options)) *Collector {
	opts := Options{Namespace: DefaultNamespace}
	for _, fn := range optFns {
		fn(&opts)
	}

	reg := prometheus.NewRegistry()
	if opts.RuntimeCollectors {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Name:      "turns_total",
				Help:      "Total number of conversation turns by speaker and outcome",
			},
			[]string{"speaker", "status"},
		),
		backendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: opts.Namespace,
				Name:      "backend_duration_seconds",
				Help:      "Responder backend call duration in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
			},
			[]string{"speaker"},
		),
		sessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Name:      "sessions_total",
				Help:      "Total number of conversation runs by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: opts.Namespace,
				Name:      "active_sessions",
				Help:      "Number of conversation runs in progress",
			},
		),
	}
}

// RecordTurn counts a completed backend call and observes its latency.
func (c *Collector) RecordTurn(speaker string, failed bool, d time.Duration) {
	if c == nil {
		return
	}
	status := StatusOK
	if failed {
		status = StatusError
	}
	c.turnsTotal.WithLabelValues(speaker, status).Inc()
	c.backendDuration.WithLabelValues(speaker).Observe(d.Seconds())
}

// SessionStarted marks a run as in progress.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.activeSessions.Inc()
}

// SessionFinished records the outcome of a run started with SessionStarted.
func (c *Collector) SessionFinished(mode, status string) {
	if c == nil {
		return
	}
	c.activeSessions.Dec()
	c.sessionsTotal.WithLabelValues(mode, status).Inc()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
