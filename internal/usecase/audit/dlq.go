package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"council-backend/internal/domain/entity"
	"council-backend/internal/infra/kvstore"
	"council-backend/internal/observability/metrics"
)

// DeadLetterQueue parks audit records the log store could not accept.
// Entries live in a KV store list: LPUSH adds at the head, the tail is oldest.
type DeadLetterQueue struct {
	store kvstore.Store
	cfg   Config
	opts  options

	// mu serializes push+trim so the cap holds under concurrent enqueues.
	mu sync.Mutex

	overflowLog rate.Sometimes
}

// NewDeadLetterQueue creates a queue over store.
func NewDeadLetterQueue(store kvstore.Store, cfg Config, opts ...Option) *DeadLetterQueue {
	return &DeadLetterQueue{
		store:       store,
		cfg:         cfg.withDefaults(),
		opts:        applyOptions(opts),
		overflowLog: rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

// Config returns the effective configuration.
func (q *DeadLetterQueue) Config() Config {
	return q.cfg
}

// Enqueue parks rec at the head of the queue. When the queue grows past
// MaxSize the oldest entries are trimmed away.
func (q *DeadLetterQueue) Enqueue(ctx context.Context, rec entity.AuditRecord) (*entity.DLQEntry, error) {
	entry := &entity.DLQEntry{
		ID:         q.opts.newID(),
		Record:     rec,
		EnqueuedAt: q.opts.now().UTC(),
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("Enqueue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	n, err := q.store.LPush(ctx, q.cfg.Key, string(payload))
	if err != nil {
		return nil, fmt.Errorf("Enqueue: %w", err)
	}

	if n > q.cfg.MaxSize {
		if err := q.store.LTrim(ctx, q.cfg.Key, 0, q.cfg.MaxSize-1); err != nil {
			// the entry itself is stored; the next enqueue trims again
			q.opts.logger.Warn("audit dead-letter queue trim failed",
				slog.Int64("length", n),
				slog.Any("error", err))
		} else {
			dropped := n - q.cfg.MaxSize
			metrics.RecordDLQOverflow(dropped)
			q.overflowLog.Do(func() {
				q.opts.logger.Warn("audit dead-letter queue overflow, oldest entries dropped",
					slog.Int64("dropped", dropped),
					slog.Int64("max_size", q.cfg.MaxSize))
			})
			n = q.cfg.MaxSize
		}
	}
	metrics.UpdateDLQDepth(n)
	return entry, nil
}

// Len returns the number of queued entries.
func (q *DeadLetterQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.store.LLen(ctx, q.cfg.Key)
	if err != nil {
		return 0, fmt.Errorf("Len: %w", err)
	}
	return n, nil
}

// Peek returns up to n of the oldest entries, oldest first, without removing
// them. Entries that cannot be decoded are skipped.
func (q *DeadLetterQueue) Peek(ctx context.Context, n int64) ([]entity.DLQEntry, error) {
	raws, err := q.oldest(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("Peek: %w", err)
	}

	out := make([]entity.DLQEntry, 0, len(raws))
	for _, raw := range raws {
		entry, err := decodeEntry(raw)
		if err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// oldest returns the raw payloads of up to n tail entries, oldest first.
func (q *DeadLetterQueue) oldest(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	raws, err := q.store.LRange(ctx, q.cfg.Key, -n, -1)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(raws)-1; i < j; i, j = i+1, j-1 {
		raws[i], raws[j] = raws[j], raws[i]
	}
	return raws, nil
}

// remove deletes the entry with exactly this payload. Entry IDs are unique, so
// at most one element matches.
func (q *DeadLetterQueue) remove(ctx context.Context, raw string) error {
	if _, err := q.store.LRem(ctx, q.cfg.Key, 1, raw); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func decodeEntry(raw string) (entity.DLQEntry, error) {
	var entry entity.DLQEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return entity.DLQEntry{}, err
	}
	if entry.ID == "" {
		return entity.DLQEntry{}, fmt.Errorf("decode entry: missing id")
	}
	return entry, nil
}
