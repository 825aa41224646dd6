package audit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"council-backend/internal/domain/entity"
	"council-backend/internal/infra/kvstore"
	"council-backend/internal/repository"
	"council-backend/internal/usecase/audit"
)

/*────────────────────  in-memory stubs  ────────────────────*/

var errStoreDown = errors.New("connection refused")

// stubRepo is an AuditLogRepository that keeps inserted records in order.
type stubRepo struct {
	mu        sync.Mutex
	inserted  []entity.AuditRecord
	insertErr func(rec *entity.AuditRecord) error // forced error injection
	selected  []repository.AuditFilter
	selectErr error
}

func (r *stubRepo) Insert(ctx context.Context, rec *entity.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		if err := r.insertErr(rec); err != nil {
			return err
		}
	}
	r.inserted = append(r.inserted, *rec)
	return nil
}

func (r *stubRepo) Select(_ context.Context, filter repository.AuditFilter) ([]*entity.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = append(r.selected, filter)
	if r.selectErr != nil {
		return nil, r.selectErr
	}
	out := make([]*entity.AuditRecord, 0, len(r.inserted))
	for i := len(r.inserted) - 1; i >= 0; i-- {
		rec := r.inserted[i]
		out = append(out, &rec)
	}
	return out, nil
}

func (r *stubRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inserted)
}

func alwaysFail(*entity.AuditRecord) error { return errStoreDown }

// brokenStore fails the list commands selected by its flags.
type brokenStore struct {
	*kvstore.Memory
	failPush  bool
	failRange bool
}

func (s *brokenStore) LPush(ctx context.Context, key, value string) (int64, error) {
	if s.failPush {
		return 0, fmt.Errorf("LPush %s: %w", key, errStoreDown)
	}
	return s.Memory.LPush(ctx, key, value)
}

func (s *brokenStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if s.failRange {
		return nil, fmt.Errorf("LRange %s: %w", key, errStoreDown)
	}
	return s.Memory.LRange(ctx, key, start, stop)
}

/*────────────────────  helpers  ────────────────────*/

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%04d", prefix, n)
	}
}

func strPtr(s string) *string { return &s }

func loginRecord(actor string) *entity.AuditRecord {
	return &entity.AuditRecord{
		ActorID:      strPtr(actor),
		Action:       "login",
		ResourceType: "session",
		Origin: entity.Origin{
			IPAddress: "203.0.113.7",
			UserAgent: "council-web/1.4",
			Metadata:  map[string]any{"tenant": "acme"},
		},
	}
}

type fixture struct {
	clock *clock
	store kvstore.Store
	repo  *stubRepo
	dlq   *audit.DeadLetterQueue
	opts  []audit.Option
}

func newFixture(store kvstore.Store, cfg audit.Config) *fixture {
	f := &fixture{clock: newClock(), store: store, repo: &stubRepo{}}
	f.opts = []audit.Option{
		audit.WithClock(f.clock.Now),
		audit.WithIDGenerator(sequentialIDs("id")),
	}
	f.dlq = audit.NewDeadLetterQueue(store, cfg, f.opts...)
	return f
}
