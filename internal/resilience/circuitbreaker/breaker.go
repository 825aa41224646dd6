package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"council-backend/internal/observability/metrics"
	"council-backend/internal/observability/tracing"
)

// Operation is a call to a protected dependency. The context carries the
// breaker timeout as its deadline.
type Operation func(ctx context.Context) (any, error)

// Fallback produces a substitute result when the breaker rejects a call or the
// operation fails. err is the rejection or failure being replaced.
type Fallback func(ctx context.Context, err error) (any, error)

// Breaker wraps gobreaker.CircuitBreaker with a call timeout, fallbacks and
// per-breaker statistics.
type Breaker struct {
	name string
	cfg  Config
	cb   *gobreaker.CircuitBreaker
	now  func() time.Time

	down atomic.Bool

	mu        sync.Mutex
	gen       uint64
	successes uint64
	failures  uint64
	timeouts  uint64
	fallbacks uint64
	rejects   uint64
	lastUsed  time.Time
}

// New creates a standalone breaker. Most callers obtain breakers from a Registry.
func New(name string, cfg Config) *Breaker {
	return newBreaker(name, cfg, time.Now, nil)
}

func newBreaker(name string, cfg Config, now func() time.Time, notify func(StateChange)) *Breaker {
	cfg = cfg.withDefaults()
	b := &Breaker{
		name:     name,
		cfg:      cfg,
		now:      now,
		lastUsed: now(),
	}

	settings := gobreaker.Settings{
		Name: name,
		// Exactly one trial call in half-open; its success closes the circuit.
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.CoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		// Called under the gobreaker lock: must not call back into the breaker.
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateClosed {
				b.resetCounts()
			}
			if notify != nil {
				notify(StateChange{
					Name: name,
					From: fromGobreaker(from),
					To:   fromGobreaker(to),
					At:   b.now(),
				})
			}
		},
	}
	b.cb = gobreaker.NewCircuitBreaker(settings)
	return b
}

// Name returns the name of the circuit breaker.
func (b *Breaker) Name() string {
	return b.name
}

// Config returns the effective configuration with defaults applied.
func (b *Breaker) Config() Config {
	return b.cfg
}

// State returns the current state of the circuit breaker.
func (b *Breaker) State() State {
	return fromGobreaker(b.cb.State())
}

// IsOpen returns true if the circuit breaker is in the open state.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Stats returns a snapshot of the breaker counters.
func (b *Breaker) Stats() Stats {
	state := b.State()

	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:      b.name,
		State:     state,
		Successes: b.successes,
		Failures:  b.failures,
		Timeouts:  b.timeouts,
		Fallbacks: b.fallbacks,
		Rejects:   b.rejects,
		LastUsed:  b.lastUsed,
	}
}

// Shutdown retires the breaker. Operations already running are left to
// finish; every later Execute is rejected with ErrBreakerShutdown, which a
// fallback replaces like any other rejection.
func (b *Breaker) Shutdown() {
	b.down.Store(true)
}

func (b *Breaker) isShutdown() bool {
	return b.down.Load()
}

// Execute runs fn through the circuit breaker.
//
// fn is never invoked while the breaker is open. A call that exceeds the
// configured timeout is counted as a failure as soon as the timeout elapses and
// its late result is dropped. When fallback is non-nil it replaces rejections
// (open or shut down) and failures; the failure is still counted.
func (b *Breaker) Execute(ctx context.Context, fn Operation, fallback Fallback) (result any, err error) {
	ctx, span := tracing.GetTracer().Start(ctx, "circuitbreaker.Execute",
		trace.WithAttributes(attribute.String("breaker.name", b.name)))
	defer func() {
		tracing.EndSpan(span, err)
	}()

	if b.isShutdown() {
		err = fmt.Errorf("%s: %w", b.name, ErrBreakerShutdown)
		if fallback == nil {
			return nil, err
		}
		b.count(b.generation(), &b.fallbacks, metrics.CallFallback)
		return fallback(ctx, err)
	}

	gen := b.touch()
	result, err = b.cb.Execute(func() (interface{}, error) {
		return b.call(ctx, fn)
	})

	switch {
	case err == nil:
		b.count(gen, &b.successes, metrics.CallSuccess)
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		b.count(gen, &b.rejects, metrics.CallRejected)
		err = fmt.Errorf("%s: %w", b.name, ErrOpen)
	case errors.Is(err, ErrTimeout):
		b.count(gen, &b.timeouts, metrics.CallTimeout)
		err = &DependencyError{Name: b.name, Err: err}
	default:
		b.count(gen, &b.failures, metrics.CallFailure)
		err = &DependencyError{Name: b.name, Err: err}
	}

	if fallback == nil {
		return nil, err
	}
	b.count(gen, &b.fallbacks, metrics.CallFallback)
	return fallback(ctx, err)
}

type outcome struct {
	val any
	err error
}

// call runs fn with the breaker timeout, abandoning the wait when it elapses.
func (b *Breaker) call(parent context.Context, fn Operation) (any, error) {
	ctx, cancel := context.WithTimeout(parent, b.cfg.Timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{val: v, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
		if out.err == nil {
			return out.val, nil
		}
	case <-ctx.Done():
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, ErrTimeout
	case ctx.Err() != nil:
		return nil, ctx.Err()
	}
	return out.val, out.err
}

// touch refreshes the last-used time and returns the current counter generation.
func (b *Breaker) touch() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastUsed = b.now()
	return b.gen
}

func (b *Breaker) generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

func (b *Breaker) lastUsedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}

// count increments counter unless the counters were reset after the call began.
func (b *Breaker) count(gen uint64, counter *uint64, result string) {
	metrics.RecordBreakerCall(b.name, result)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return
	}
	*counter++
}

func (b *Breaker) resetCounts() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.successes = 0
	b.failures = 0
	b.timeouts = 0
	b.fallbacks = 0
	b.rejects = 0
}
