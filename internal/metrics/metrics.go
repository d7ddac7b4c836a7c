// Package metrics holds the prometheus collectors for the dispatcher and the
// watch registries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Dispatcher metrics
	TasksStarted  *prometheus.CounterVec
	TasksFinished *prometheus.CounterVec
	TaskDuration  *prometheus.HistogramVec
	TasksInFlight prometheus.Gauge

	// Watch metrics
	WatchersActive *prometheus.GaugeVec
	WatchEvents    *prometheus.CounterVec

	Registry *prometheus.Registry
}

// New registers the collectors on reg. A nil reg gets a private registry so
// several engines can live in one process (and in one test binary).
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		TasksStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodefs_tasks_started_total",
				Help: "Async operations launched, by operation",
			},
			[]string{"op"},
		),
		TasksFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodefs_tasks_finished_total",
				Help: "Async operations completed, by operation and outcome",
			},
			[]string{"op", "result"},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nodefs_task_duration_seconds",
				Help:    "Async operation latency",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"op"},
		),
		TasksInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "nodefs_tasks_in_flight",
				Help: "Async operations currently running or waiting for a worker slot",
			},
		),
		WatchersActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nodefs_watchers_active",
				Help: "Watched paths with a live backend, by kind",
			},
			[]string{"kind"},
		),
		WatchEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodefs_watch_events_total",
				Help: "Events delivered to subscribers, by kind and event type",
			},
			[]string{"kind", "event"},
		),
	}
}

// TaskStarted records a launched operation.
func (m *Metrics) TaskStarted(op string) {
	m.TasksStarted.WithLabelValues(op).Inc()
	m.TasksInFlight.Inc()
}

// TaskFinished records the outcome of an operation started at start.
func (m *Metrics) TaskFinished(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.TasksInFlight.Dec()
	m.TasksFinished.WithLabelValues(op, result).Inc()
	m.TaskDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
