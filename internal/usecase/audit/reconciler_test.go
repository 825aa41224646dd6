package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"council-backend/internal/domain/entity"
	"council-backend/internal/infra/kvstore"
	"council-backend/internal/usecase/audit"
)

func enqueue(t *testing.T, f *fixture, recs ...*entity.AuditRecord) {
	t.Helper()
	for _, rec := range recs {
		_, err := f.dlq.Enqueue(context.Background(), *rec)
		require.NoError(t, err)
	}
}

// Scenario: an entry enqueued 8 days ago with a 7-day staleness threshold is
// dropped without a write attempt and counted as expired.
func TestReconciler_DiscardsStaleWithoutWriting(t *testing.T) {
	f := newFixture(kvstore.NewMemory(), audit.Config{StaleAfter: 7 * 24 * time.Hour})
	enqueue(t, f, loginRecord("u1"))
	f.clock.Advance(8 * 24 * time.Hour)

	r := audit.NewReconciler(f.repo, f.dlq, f.opts...)
	res, err := r.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, audit.ReconcileResult{Examined: 1, Expired: 1}, res)
	assert.Equal(t, 0, f.repo.count(), "stale entries are never written")
}

func TestReconciler_StaleBoundary(t *testing.T) {
	f := newFixture(kvstore.NewMemory(), audit.Config{StaleAfter: time.Hour})
	enqueue(t, f, loginRecord("u1"))
	f.clock.Advance(time.Hour)

	r := audit.NewReconciler(f.repo, f.dlq, f.opts...)
	res, err := r.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Written, "an entry exactly at the threshold is still replayed")
	assert.Equal(t, 0, res.Expired)
}

func TestReconciler_WritesAndLeavesFailed(t *testing.T) {
	f := newFixture(kvstore.NewMemory(), audit.DefaultConfig())
	enqueue(t, f, loginRecord("u1"), loginRecord("u2"), loginRecord("u3"))
	f.repo.insertErr = func(rec *entity.AuditRecord) error {
		if *rec.ActorID == "u2" {
			return errStoreDown
		}
		return nil
	}

	r := audit.NewReconciler(f.repo, f.dlq, f.opts...)
	res, err := r.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, audit.ReconcileResult{Examined: 3, Written: 2, Failed: 1, Remaining: 1}, res)

	require.Equal(t, 2, f.repo.count())
	assert.Equal(t, "u1", *f.repo.inserted[0].ActorID, "oldest first")
	assert.Equal(t, "u3", *f.repo.inserted[1].ActorID)

	left, err := f.dlq.Peek(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "u2", *left[0].Record.ActorID)

	// the log store recovers: the next pass drains the leftover
	f.repo.insertErr = nil
	res, err = r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, audit.ReconcileResult{Examined: 1, Written: 1}, res)
}

func TestReconciler_BatchSize(t *testing.T) {
	f := newFixture(kvstore.NewMemory(), audit.Config{BatchSize: 2})
	enqueue(t, f, loginRecord("u1"), loginRecord("u2"), loginRecord("u3"), loginRecord("u4"), loginRecord("u5"))

	r := audit.NewReconciler(f.repo, f.dlq, f.opts...)
	res, err := r.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, int64(3), res.Remaining)
	require.Equal(t, 2, f.repo.count())
	assert.Equal(t, "u1", *f.repo.inserted[0].ActorID)
	assert.Equal(t, "u2", *f.repo.inserted[1].ActorID)
}

func TestReconciler_IdenticalRecordsRemovedIndividually(t *testing.T) {
	f := newFixture(kvstore.NewMemory(), audit.DefaultConfig())
	rec := loginRecord("u1")
	rec.ID = "same-record"
	rec.CreatedAt = f.clock.Now()
	enqueue(t, f, rec, rec)

	calls := 0
	f.repo.insertErr = func(*entity.AuditRecord) error {
		calls++
		if calls == 1 {
			return errStoreDown
		}
		return nil
	}

	r := audit.NewReconciler(f.repo, f.dlq, f.opts...)
	res, err := r.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int64(1), res.Remaining, "only the written copy is removed")
}

func TestReconciler_RemovesCorrupt(t *testing.T) {
	store := kvstore.NewMemory()
	f := newFixture(store, audit.DefaultConfig())
	_, err := store.LPush(context.Background(), audit.DefaultDLQKey, "{broken")
	require.NoError(t, err)
	enqueue(t, f, loginRecord("u1"))

	r := audit.NewReconciler(f.repo, f.dlq, f.opts...)
	res, err := r.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, audit.ReconcileResult{Examined: 2, Written: 1, Corrupt: 1}, res)
}

func TestReconciler_EmptyQueue(t *testing.T) {
	f := newFixture(kvstore.NewMemory(), audit.DefaultConfig())

	res, err := audit.NewReconciler(f.repo, f.dlq, f.opts...).Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, audit.ReconcileResult{}, res)
}

func TestReconciler_QueueUnreadable(t *testing.T) {
	f := newFixture(&brokenStore{Memory: kvstore.NewMemory(), failRange: true}, audit.DefaultConfig())

	_, err := audit.NewReconciler(f.repo, f.dlq, f.opts...).Reconcile(context.Background())

	assert.ErrorIs(t, err, errStoreDown)
}

func TestReconciler_StopsWhenContextDone(t *testing.T) {
	f := newFixture(kvstore.NewMemory(), audit.DefaultConfig())
	enqueue(t, f, loginRecord("u1"), loginRecord("u2"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := audit.NewReconciler(f.repo, f.dlq, f.opts...).Reconcile(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Examined)
	assert.Equal(t, int64(2), res.Remaining)
	assert.Equal(t, 0, f.repo.count())
}
