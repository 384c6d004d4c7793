// Package metrics provides Prometheus metrics for the chat server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/huddlehq/huddle-server/internal/domain/sweep"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "huddle",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
		[]string{"method", "route"},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total object storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "huddle",
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Object storage operation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total calls to AI providers",
		},
		[]string{"provider", "operation", "status"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "huddle",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "AI provider call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Background sweep executions by outcome",
		},
		[]string{"sweep", "outcome"},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "huddle",
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Background sweep duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 600},
		},
		[]string{"sweep"},
	)

	RealtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "huddle",
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Number of open realtime streams",
		},
	)

	RealtimeEventsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "realtime",
			Name:      "events_sent_total",
			Help:      "Realtime events written to streams",
		},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, route, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordStorage records an object storage operation.
func RecordStorage(operation string, err error, duration time.Duration) {
	StorageOperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
	StorageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordProvider records one call to an external AI provider.
func RecordProvider(provider, operation string, err error, duration time.Duration) {
	ProviderCallsTotal.WithLabelValues(provider, operation, outcome(err)).Inc()
	ProviderDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// SweepRecorder reports sweep executions.
type SweepRecorder struct{}

var _ sweep.Recorder = SweepRecorder{}

func (SweepRecorder) Observe(name string, duration time.Duration, err error, skipped bool) {
	result := outcome(err)
	if skipped {
		result = "skipped"
	}
	SweepRunsTotal.WithLabelValues(name, result).Inc()
	if !skipped {
		SweepDuration.WithLabelValues(name).Observe(duration.Seconds())
	}
}
