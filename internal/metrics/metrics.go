package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaqueue_items_enqueued_total",
		Help: "Total number of files accepted into a processing queue",
	})

	ItemsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaqueue_items_processed_total",
		Help: "Total number of queued files processed, by terminal status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediaqueue_stage_duration_seconds",
		Help:    "Duration of each processing stage",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaqueue_queue_depth",
		Help: "Number of files waiting across all user queues",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaqueue_active_workers",
		Help: "Number of running per-user workers",
	})

	WorkerRestartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaqueue_worker_restarts_total",
		Help: "Total number of worker restarts after a crash",
	})

	RegisteredUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaqueue_registered_users",
		Help: "Number of users with a queue in the registry",
	})
)

var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "mediaqueue_http_request_duration_seconds",
	Help:    "Duration of HTTP requests, by method and status code",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "status"})

var PanicsRecoveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mediaqueue_panics_recovered_total",
	Help: "Total number of recovered panics, by component",
}, []string{"component"})
