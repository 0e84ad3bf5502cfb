package vectorstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts store operations.
	// Labels: backend, operation, status (success, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragcore",
			Subsystem: "vectorstore",
			Name:      "operations_total",
			Help:      "Total number of vector store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	// SearchDuration tracks search latency.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragcore",
			Subsystem: "vectorstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of vector searches in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend"},
	)

	// Records reports the number of stored records per backend.
	Records = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ragcore",
			Subsystem: "vectorstore",
			Name:      "records",
			Help:      "Number of records currently stored",
		},
		[]string{"backend"},
	)
)

func recordOperation(backend, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	OperationsTotal.WithLabelValues(backend, operation, status).Inc()
}

func recordSearch(backend string, d time.Duration, err error) {
	SearchDuration.WithLabelValues(backend).Observe(d.Seconds())
	recordOperation(backend, "search", err)
}
