package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
)

// Breaker call results.
const (
	CallSuccess  = "success"
	CallFailure  = "failure"
	CallTimeout  = "timeout"
	CallRejected = "rejected"
	CallFallback = "fallback"
)

// Audit record outcomes.
const (
	AuditOutcomeDirect   = "direct"
	AuditOutcomeEnqueued = "enqueued"
	AuditOutcomeLost     = "lost"
)

// Reconcile outcomes.
const (
	ReconcileWritten = "written"
	ReconcileExpired = "expired"
	ReconcileFailed  = "failed"
	ReconcileCorrupt = "corrupt"
)

// RecordBreakerCall records the result of one call made through a breaker.
func RecordBreakerCall(name, result string) {
	BreakerCallsTotal.WithLabelValues(name, result).Inc()
}

// RecordBreakerTransition records a state transition and updates the state gauge.
// stateValue follows the gauge encoding (0=closed, 1=half-open, 2=open).
func RecordBreakerTransition(name, from, to string, stateValue float64) {
	BreakerTransitionsTotal.WithLabelValues(name, from, to).Inc()
	BreakerState.WithLabelValues(name).Set(stateValue)
}

// RecordBreakerEvicted counts a breaker evicted for capacity.
func RecordBreakerEvicted() {
	BreakerEvictionsTotal.Inc()
}

// ForgetBreaker drops every series labelled with a removed breaker so the label
// space stays bounded by the registry capacity.
func ForgetBreaker(name string) {
	labels := prometheus.Labels{"name": name}
	BreakerState.DeletePartialMatch(labels)
	BreakerCallsTotal.DeletePartialMatch(labels)
	BreakerTransitionsTotal.DeletePartialMatch(labels)
}

// UpdateBreakersActive sets the number of breakers held by the registry.
func UpdateBreakersActive(count int) {
	BreakersActive.Set(float64(count))
}

// RecordAuditWrite records how an audit record was handled.
func RecordAuditWrite(outcome string) {
	AuditRecordsTotal.WithLabelValues(outcome).Inc()
}

// UpdateDLQDepth sets the current dead-letter queue depth.
func UpdateDLQDepth(depth int64) {
	AuditDLQDepth.Set(float64(depth))
}

// RecordDLQOverflow records entries dropped by the queue size cap.
func RecordDLQOverflow(dropped int64) {
	if dropped > 0 {
		AuditDLQOverflowTotal.Add(float64(dropped))
	}
}

// RecordReconciled adds count entries to the given reconcile outcome.
func RecordReconciled(outcome string, count int) {
	if count > 0 {
		AuditReconciledTotal.WithLabelValues(outcome).Add(float64(count))
	}
}

// UpdateDBConnectionStats copies pool statistics into the connection gauges.
func UpdateDBConnectionStats(stats sql.DBStats) {
	DBConnectionsActive.Set(float64(stats.InUse))
	DBConnectionsIdle.Set(float64(stats.Idle))
}
