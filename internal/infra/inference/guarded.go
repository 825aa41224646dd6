package inference

import (
	"context"
	"log/slog"

	"council-backend/internal/resilience/circuitbreaker"
	"council-backend/internal/resilience/retry"
)

// Guarded routes a Provider through the circuit breaker registered under its name.
//
// When the breaker rejects the call or the call fails, the fallback provider
// (if any) answers instead. A fallback that is itself Guarded is protected by
// its own breaker.
type Guarded struct {
	registry *circuitbreaker.Registry
	primary  Provider
	fallback Provider
	retry    *retry.Config
	logger   *slog.Logger
}

// GuardOption configures a Guarded provider.
type GuardOption func(*Guarded)

// WithFallback sets the provider used while the primary is unavailable.
func WithFallback(p Provider) GuardOption {
	return func(g *Guarded) { g.fallback = p }
}

// WithRetry retries retryable failures of the guarded call with backoff.
// Rejections from an open breaker are never retried.
func WithRetry(cfg retry.Config) GuardOption {
	return func(g *Guarded) { g.retry = &cfg }
}

// WithGuardLogger sets the logger used for fallback events.
func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *Guarded) { g.logger = logger }
}

// NewGuarded wraps primary with the breaker named primary.Name().
func NewGuarded(registry *circuitbreaker.Registry, primary Provider, opts ...GuardOption) *Guarded {
	g := &Guarded{
		registry: registry,
		primary:  primary,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the name of the primary provider.
func (g *Guarded) Name() string {
	return g.primary.Name()
}

// Complete runs the primary provider under its breaker.
func (g *Guarded) Complete(ctx context.Context, prompt string) (string, error) {
	call := func(ctx context.Context) (string, error) {
		return g.primary.Complete(ctx, prompt)
	}

	var fallback func(context.Context, error) (string, error)
	if g.fallback != nil {
		fallback = func(ctx context.Context, cause error) (string, error) {
			g.logger.WarnContext(ctx, "inference provider unavailable, using fallback",
				slog.String("provider", g.primary.Name()),
				slog.String("fallback", g.fallback.Name()),
				slog.Any("error", cause))
			return g.fallback.Complete(ctx, prompt)
		}
	}

	if g.retry == nil {
		return circuitbreaker.Execute(ctx, g.registry, g.primary.Name(), call, fallback)
	}

	// Only the primary is retried; the fallback answers once the retries are spent.
	answer, err := retry.Do(ctx, *g.retry, func() (string, error) {
		return circuitbreaker.Execute(ctx, g.registry, g.primary.Name(), call, nil)
	})
	if err == nil || fallback == nil {
		return answer, err
	}
	return fallback(ctx, err)
}
