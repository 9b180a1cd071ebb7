// Package prometheus exposes the service's operational metrics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scenedex"

// Metrics holds all registered application metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP layer.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Revision pipeline.
	ReconcileRunsTotal    *prometheus.CounterVec
	ReconcileDuration     prometheus.Histogram
	DetectedEntitiesTotal *prometheus.CounterVec
	PendingMatches        prometheus.Gauge

	// Decision resolution.
	DecisionsTotal *prometheus.CounterVec

	// Task queue.
	TasksEnqueuedTotal *prometheus.CounterVec
	TaskQueueDepth     prometheus.Gauge
}

// NewMetrics registers all application metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})

	m.ReconcileRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_runs_total",
		Help:      "Reconciliation runs by outcome status",
	}, []string{"status"})

	m.ReconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconcile_duration_seconds",
		Help:      "Reconciliation run duration",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	})

	m.DetectedEntitiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detected_entities_total",
		Help:      "Entities detected in processed scripts by type",
	}, []string{"type"})

	m.PendingMatches = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_matches",
		Help:      "Revision matches awaiting a decision",
	})

	m.DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Resolved match decisions by kind",
	}, []string{"decision"})

	m.TasksEnqueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_enqueued_total",
		Help:      "Pipeline tasks enqueued by kind",
	}, []string{"kind"})

	m.TaskQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "task_queue_depth",
		Help:      "Tasks waiting in the local queue",
	})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReconcileRunsTotal,
		m.ReconcileDuration,
		m.DetectedEntitiesTotal,
		m.PendingMatches,
		m.DecisionsTotal,
		m.TasksEnqueuedTotal,
		m.TaskQueueDepth,
	)
	return m
}

// Handler returns the exposition endpoint for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveReconcileRun records one reconciliation run and its outcome.
func (m *Metrics) ObserveReconcileRun(status string, elapsed time.Duration) {
	m.ReconcileRunsTotal.WithLabelValues(status).Inc()
	m.ReconcileDuration.Observe(elapsed.Seconds())
}
