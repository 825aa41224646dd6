package metrics

import (
	"database/sql"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordBreakerCall(t *testing.T) {
	before := testutil.ToFloat64(BreakerCallsTotal.WithLabelValues("metrics-test-call", CallTimeout))

	RecordBreakerCall("metrics-test-call", CallTimeout)
	RecordBreakerCall("metrics-test-call", CallTimeout)

	after := testutil.ToFloat64(BreakerCallsTotal.WithLabelValues("metrics-test-call", CallTimeout))
	assert.Equal(t, before+2, after)
}

func TestRecordBreakerTransition(t *testing.T) {
	RecordBreakerTransition("metrics-test-transition", "closed", "open", 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(BreakerState.WithLabelValues("metrics-test-transition")))
	assert.Equal(t, float64(1), testutil.ToFloat64(BreakerTransitionsTotal.WithLabelValues("metrics-test-transition", "closed", "open")))
}

func TestRecordBreakerEvicted(t *testing.T) {
	before := testutil.ToFloat64(BreakerEvictionsTotal)
	RecordBreakerEvicted()
	assert.Equal(t, before+1, testutil.ToFloat64(BreakerEvictionsTotal))
}

func TestForgetBreaker(t *testing.T) {
	RecordBreakerTransition("metrics-test-evicted", "closed", "open", 2)
	RecordBreakerCall("metrics-test-evicted", CallFailure)

	ForgetBreaker("metrics-test-evicted")

	// a fresh child starts from zero once the old series is deleted
	assert.Equal(t, float64(0), testutil.ToFloat64(BreakerState.WithLabelValues("metrics-test-evicted")))
	assert.Equal(t, float64(0), testutil.ToFloat64(BreakerCallsTotal.WithLabelValues("metrics-test-evicted", CallFailure)))
}

func TestUpdateGauges(t *testing.T) {
	UpdateBreakersActive(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(BreakersActive))

	UpdateDLQDepth(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(AuditDLQDepth))

	UpdateDBConnectionStats(sql.DBStats{InUse: 3, Idle: 2})
	assert.Equal(t, float64(3), testutil.ToFloat64(DBConnectionsActive))
	assert.Equal(t, float64(2), testutil.ToFloat64(DBConnectionsIdle))
}

func TestRecordAuditWrite(t *testing.T) {
	tests := []string{AuditOutcomeDirect, AuditOutcomeEnqueued, AuditOutcomeLost}

	for _, outcome := range tests {
		t.Run(outcome, func(t *testing.T) {
			before := testutil.ToFloat64(AuditRecordsTotal.WithLabelValues(outcome))
			RecordAuditWrite(outcome)
			assert.Equal(t, before+1, testutil.ToFloat64(AuditRecordsTotal.WithLabelValues(outcome)))
		})
	}
}

func TestRecordDLQOverflow(t *testing.T) {
	before := testutil.ToFloat64(AuditDLQOverflowTotal)

	RecordDLQOverflow(0)
	RecordDLQOverflow(-1)
	assert.Equal(t, before, testutil.ToFloat64(AuditDLQOverflowTotal))

	RecordDLQOverflow(3)
	assert.Equal(t, before+3, testutil.ToFloat64(AuditDLQOverflowTotal))
}

func TestRecordReconciled(t *testing.T) {
	before := testutil.ToFloat64(AuditReconciledTotal.WithLabelValues(ReconcileExpired))

	RecordReconciled(ReconcileExpired, 0)
	RecordReconciled(ReconcileExpired, 4)

	assert.Equal(t, before+4, testutil.ToFloat64(AuditReconciledTotal.WithLabelValues(ReconcileExpired)))
}

func TestRecordOperationDuration(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordOperationDuration("audit_insert", 15*time.Millisecond)
	})
}
