package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts gateway operations.
	// Labels: backend, operation, result (success, error, not_found)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragnchat",
			Subsystem: "vectorstore",
			Name:      "operations_total",
			Help:      "Total number of vector store operations",
		},
		[]string{"backend", "operation", "result"},
	)

	// OperationDuration tracks how long backend calls take.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragnchat",
			Subsystem: "vectorstore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of vector store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	// UpsertBatchesTotal counts upsert batches sent to the backend.
	UpsertBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragnchat",
			Subsystem: "vectorstore",
			Name:      "upsert_batches_total",
			Help:      "Total number of upsert batches",
		},
		[]string{"backend"},
	)

	// RecordsUpserted counts records written.
	RecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragnchat",
			Subsystem: "vectorstore",
			Name:      "records_upserted_total",
			Help:      "Total number of records written",
		},
		[]string{"backend"},
	)

	// HealthStatus indicates current backend health (1=healthy, 0=unreachable).
	HealthStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ragnchat",
			Subsystem: "vectorstore",
			Name:      "health_status",
			Help:      "Current health status (1=healthy, 0=unreachable)",
		},
		[]string{"backend"},
	)
)

func recordResult(backend, operation, result string, seconds float64) {
	OperationsTotal.WithLabelValues(backend, operation, result).Inc()
	OperationDuration.WithLabelValues(backend, operation).Observe(seconds)
}
