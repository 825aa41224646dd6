package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"council-backend/internal/usecase/audit"
)

// Reconciler drains part of the audit dead-letter queue.
// *audit.Reconciler satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context) (audit.ReconcileResult, error)
}

// ReconcileScheduler runs a Reconciler once at start-up and then every interval.
// Runs never overlap: a tick that fires while a pass is still running is skipped.
type ReconcileScheduler struct {
	reconciler Reconciler
	interval   time.Duration
	metrics    *WorkerMetrics
	logger     *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// NewReconcileScheduler creates a scheduler. metrics may be nil.
func NewReconcileScheduler(r Reconciler, interval time.Duration, metrics *WorkerMetrics, logger *slog.Logger) *ReconcileScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileScheduler{
		reconciler: r,
		interval:   interval,
		metrics:    metrics,
		logger:     logger,
	}
}

// Start triggers an immediate pass in the background and schedules the rest.
// Passes run with a context derived from ctx; cancelling it or calling Stop
// ends the current pass at the next entry boundary.
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("reconcile scheduler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo))

	job := cron.NewChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	).Then(cron.FuncJob(func() {
		s.RunOnce(runCtx)
	}))

	c := cron.New(cron.WithLogger(cronLogger))
	c.Schedule(cron.Every(s.interval), job)

	s.cron = c
	s.cancel = cancel

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		job.Run()
	}()
	c.Start()

	s.logger.Info("reconcile scheduler started", slog.Duration("interval", s.interval))
	return nil
}

// Stop cancels the running pass, if any, and waits for it to return.
func (s *ReconcileScheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.running.Wait()
	s.logger.Info("reconcile scheduler stopped")
}

// RunOnce performs a single reconciliation pass and records job metrics.
func (s *ReconcileScheduler) RunOnce(ctx context.Context) (audit.ReconcileResult, error) {
	start := time.Now()
	res, err := s.reconciler.Reconcile(ctx)
	duration := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordJobDuration(duration.Seconds())
	}

	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordJobRun("failure")
		}
		level := slog.LevelError
		if errors.Is(err, context.Canceled) {
			level = slog.LevelInfo
		}
		s.logger.Log(ctx, level, "audit reconcile failed",
			slog.Any("error", err),
			slog.Int("written", res.Written),
			slog.Duration("duration", duration))
		return res, err
	}

	if s.metrics != nil {
		s.metrics.RecordJobRun("success")
		s.metrics.RecordLastSuccess()
	}

	attrs := []any{
		slog.Int("examined", res.Examined),
		slog.Int("written", res.Written),
		slog.Int("expired", res.Expired),
		slog.Int("failed", res.Failed),
		slog.Int("corrupt", res.Corrupt),
		slog.Int64("remaining", res.Remaining),
		slog.Duration("duration", duration),
	}
	if res.Examined == 0 {
		s.logger.Debug("audit reconcile completed", attrs...)
	} else {
		s.logger.Info("audit reconcile completed", attrs...)
	}
	return res, nil
}
