package store

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirror the teacher's internal/storage/metrics.go pattern:
// package-level collectors labeled by backend and operation. No driver in
// this module records into them.
var (
	OperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "monctl",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Store driver operations by backend, operation and outcome.",
	}, []string{"backend", "operation", "outcome"})

	OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "monctl",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Store driver operation latency by backend and operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend", "operation"})
)

// MustRegister registers the store metrics with reg. Nothing in this module
// calls it; registering twice against the same registry panics, matching
// prometheus/client_golang convention.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(OperationsTotal, OperationDuration)
}
