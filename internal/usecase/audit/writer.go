package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"council-backend/internal/domain/entity"
	"council-backend/internal/observability/metrics"
	"council-backend/internal/observability/tracing"
	"council-backend/internal/repository"
)

// Writer records audit entries, falling back to the dead-letter queue when
// the log store is unavailable.
type Writer struct {
	repo repository.AuditLogRepository
	dlq  *DeadLetterQueue
	opts options
}

// NewWriter creates a writer over the log store and dead-letter queue.
func NewWriter(repo repository.AuditLogRepository, dlq *DeadLetterQueue, opts ...Option) *Writer {
	return &Writer{
		repo: repo,
		dlq:  dlq,
		opts: applyOptions(opts),
	}
}

// Record stores a copy of rec, assigning its ID and CreatedAt when empty.
// rec itself is not modified, so the same value can be recorded again as a
// separate event.
//
// A failed log store write is absorbed by enqueueing the record to the
// dead-letter queue; Record then returns an error only when the enqueue fails
// too. Records failing Validate are the one exception: they are rejected with
// entity.ErrInvalidInput before any write, because a replay could never
// persist them. Cancellation of ctx does not abort a record in progress.
func (w *Writer) Record(ctx context.Context, rec *entity.AuditRecord) (err error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracing.GetTracer().Start(ctx, "audit.Record",
		trace.WithAttributes(attribute.String("audit.action", rec.Action)))
	defer func() {
		tracing.EndSpan(span, err)
	}()

	r := *rec
	if r.ID == "" {
		r.ID = w.opts.newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = w.opts.now().UTC()
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	span.SetAttributes(attribute.String("audit.id", r.ID))

	start := time.Now()
	insertErr := w.repo.Insert(ctx, &r)
	metrics.RecordOperationDuration("audit_insert", time.Since(start))
	if insertErr == nil {
		metrics.RecordAuditWrite(metrics.AuditOutcomeDirect)
		return nil
	}

	storageErr := fmt.Errorf("%w: %w", ErrStorageWrite, insertErr)
	w.opts.logger.Warn("audit log store write failed, enqueueing to dead-letter queue",
		slog.String("audit_id", r.ID),
		slog.String("action", r.Action),
		slog.Any("error", storageErr))

	entry, enqueueErr := w.dlq.Enqueue(ctx, r)
	if enqueueErr != nil {
		metrics.RecordAuditWrite(metrics.AuditOutcomeLost)
		w.opts.logger.Error("audit record lost",
			slog.String("audit_id", r.ID),
			slog.String("action", r.Action),
			slog.Any("error", enqueueErr))
		return errors.Join(storageErr, fmt.Errorf("%w: %w", ErrEnqueue, enqueueErr))
	}

	metrics.RecordAuditWrite(metrics.AuditOutcomeEnqueued)
	span.SetAttributes(attribute.String("audit.dlq_entry_id", entry.ID))
	return nil
}

// Query returns committed records matching filter, newest first.
// Records still waiting in the dead-letter queue are not visible.
func (w *Writer) Query(ctx context.Context, filter repository.AuditFilter) ([]*entity.AuditRecord, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, &entity.ValidationError{Field: "from", Message: "from must not be after to"}
	}

	records, err := w.repo.Select(ctx, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	return records, nil
}
