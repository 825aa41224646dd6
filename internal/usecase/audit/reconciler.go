package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"council-backend/internal/observability/metrics"
	"council-backend/internal/observability/tracing"
	"council-backend/internal/repository"
)

// ReconcileResult summarizes one reconcile pass.
type ReconcileResult struct {
	Examined  int
	Written   int
	Expired   int
	Failed    int
	Corrupt   int
	Remaining int64
}

// Reconciler replays dead-letter entries into the audit log store.
type Reconciler struct {
	repo repository.AuditLogRepository
	dlq  *DeadLetterQueue
	opts options
}

// NewReconciler creates a reconciler draining dlq into repo.
func NewReconciler(repo repository.AuditLogRepository, dlq *DeadLetterQueue, opts ...Option) *Reconciler {
	return &Reconciler{
		repo: repo,
		dlq:  dlq,
		opts: applyOptions(opts),
	}
}

// Reconcile handles up to BatchSize of the oldest entries, oldest first.
// Entries older than StaleAfter are discarded unwritten; the rest are written
// and removed on success or left in place on failure. Delivery is
// at-least-once: an entry written but not removed is written again next pass.
//
// An error is returned only when the queue cannot be read or ctx ends the pass early.
func (r *Reconciler) Reconcile(ctx context.Context) (res ReconcileResult, err error) {
	ctx, span := tracing.GetTracer().Start(ctx, "audit.Reconcile")
	start := time.Now()
	defer func() {
		span.SetAttributes(
			attribute.Int("audit.reconcile.written", res.Written),
			attribute.Int("audit.reconcile.expired", res.Expired),
			attribute.Int("audit.reconcile.failed", res.Failed),
		)
		tracing.EndSpan(span, err)
		metrics.AuditReconcileDuration.Observe(time.Since(start).Seconds())
	}()

	cfg := r.dlq.Config()
	raws, err := r.dlq.oldest(ctx, cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("Reconcile: %w", err)
	}

	logger := r.opts.logger
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			r.finish(ctx, &res)
			return res, fmt.Errorf("Reconcile: %w", err)
		}
		res.Examined++

		entry, err := decodeEntry(raw)
		if err != nil {
			logger.Error("discarding undecodable audit dead-letter entry", slog.Any("error", err))
			if err := r.dlq.remove(ctx, raw); err != nil {
				logger.Warn("audit dead-letter removal failed", slog.Any("error", err))
			}
			res.Corrupt++
			continue
		}

		now := r.opts.now()
		if entry.IsStale(now, cfg.StaleAfter) {
			if err := r.dlq.remove(ctx, raw); err != nil {
				logger.Warn("audit dead-letter removal failed",
					slog.String("entry_id", entry.ID),
					slog.Any("error", err))
				res.Failed++
				continue
			}
			logger.Info("stale audit entry discarded",
				slog.String("entry_id", entry.ID),
				slog.String("audit_id", entry.Record.ID),
				slog.String("action", entry.Record.Action),
				slog.Duration("age", entry.Age(now)))
			res.Expired++
			continue
		}

		if err := r.repo.Insert(ctx, &entry.Record); err != nil {
			logger.Warn("audit dead-letter replay failed",
				slog.String("entry_id", entry.ID),
				slog.String("audit_id", entry.Record.ID),
				slog.Any("error", err))
			res.Failed++
			continue
		}
		if err := r.dlq.remove(ctx, raw); err != nil {
			// written; the next pass writes it again and the insert is idempotent on id
			logger.Warn("audit dead-letter removal failed after replay",
				slog.String("entry_id", entry.ID),
				slog.Any("error", err))
		}
		res.Written++
	}

	r.finish(ctx, &res)
	return res, nil
}

func (r *Reconciler) finish(ctx context.Context, res *ReconcileResult) {
	metrics.RecordReconciled(metrics.ReconcileWritten, res.Written)
	metrics.RecordReconciled(metrics.ReconcileExpired, res.Expired)
	metrics.RecordReconciled(metrics.ReconcileFailed, res.Failed)
	metrics.RecordReconciled(metrics.ReconcileCorrupt, res.Corrupt)

	remaining, err := r.dlq.Len(context.WithoutCancel(ctx))
	if err != nil {
		r.opts.logger.Warn("audit dead-letter length unavailable", slog.Any("error", err))
		res.Remaining = -1
		return
	}
	res.Remaining = remaining
	metrics.UpdateDLQDepth(remaining)
}
