// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Circuit breaker metrics track per-dependency breaker behaviour
var (
	// BreakerState exposes the current state of each breaker
	// (0=closed, 1=half-open, 2=open).
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// BreakerCallsTotal counts breaker executions by result
	BreakerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_calls_total",
			Help: "Total number of calls made through circuit breakers",
		},
		[]string{"name", "result"}, // result: success, failure, timeout, rejected, fallback
	)

	// BreakerTransitionsTotal counts state transitions
	BreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// BreakerEvictionsTotal counts breakers evicted from the registry
	BreakerEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "circuit_breaker_evictions_total",
			Help: "Total number of circuit breakers evicted from the registry",
		},
	)

	// BreakersActive tracks the number of breakers held by the registry
	BreakersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "circuit_breakers_active",
			Help: "Number of circuit breakers currently held by the registry",
		},
	)
)

// Audit metrics track audit record durability
var (
	// AuditRecordsTotal counts audit records by how they were handled
	AuditRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_records_total",
			Help: "Total number of audit records handled by the writer",
		},
		[]string{"outcome"}, // outcome: direct, enqueued, lost
	)

	// AuditDLQDepth tracks the number of entries in the dead-letter queue
	AuditDLQDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_dlq_depth",
			Help: "Number of audit records waiting in the dead-letter queue",
		},
	)

	// AuditDLQOverflowTotal counts entries dropped by the size cap
	AuditDLQOverflowTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_dlq_overflow_total",
			Help: "Total number of dead-letter entries dropped because the queue was full",
		},
	)

	// AuditReconciledTotal counts reconciled entries by outcome
	AuditReconciledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_reconciled_entries_total",
			Help: "Total number of dead-letter entries processed by the reconciler",
		},
		[]string{"outcome"}, // outcome: written, expired, failed, corrupt
	)

	// AuditReconcileDuration measures one reconcile pass
	AuditReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_reconcile_duration_seconds",
			Help:    "Time taken by one dead-letter reconcile pass",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
