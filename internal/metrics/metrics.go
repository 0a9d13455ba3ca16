// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	itemsTotal           *prometheus.CounterVec
	retriesTotal         *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec
	checkpointsTotal     prometheus.Counter
	activeWorkers        prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		itemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_items_total",
				Help: "Total work items processed, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		retriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_retries_total",
				Help: "Total retry attempts consumed, labeled by source.",
			},
			[]string{"source"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by source.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"source"},
		)

		checkpointsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_checkpoints_total",
				Help: "Total progress checkpoints flushed to disk.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_active_workers",
				Help: "Number of workers currently running.",
			},
		)
	})
}

// IncItem records one finished work item with its outcome.
func IncItem(source, outcome string) {
	if itemsTotal != nil {
		itemsTotal.WithLabelValues(source, outcome).Inc()
	}
}

// IncRetry records one consumed retry attempt.
func IncRetry(source string) {
	if retriesTotal != nil {
		retriesTotal.WithLabelValues(source).Inc()
	}
}

// ObserveFetch records a page fetch duration.
func ObserveFetch(source string, d time.Duration) {
	if fetchDurationSeconds != nil {
		fetchDurationSeconds.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncCheckpoint records a progress flush.
func IncCheckpoint() {
	if checkpointsTotal != nil {
		checkpointsTotal.Inc()
	}
}

// WorkerStarted bumps the active worker gauge.
func WorkerStarted() {
	if activeWorkers != nil {
		activeWorkers.Inc()
	}
}

// WorkerStopped decrements the active worker gauge.
func WorkerStopped() {
	if activeWorkers != nil {
		activeWorkers.Dec()
	}
}
