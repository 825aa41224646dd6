package circuitbreaker

import (
	"log/slog"

	"council-backend/internal/observability/metrics"
)

// Observer receives breaker state transitions. Observers run synchronously
// while the breaker holds its state lock and must not call back into it.
type Observer func(StateChange)

// LogObserver logs every transition at warn level.
func LogObserver(logger *slog.Logger) Observer {
	return func(c StateChange) {
		logger.Warn("circuit breaker state changed",
			slog.String("circuit", c.Name),
			slog.String("from", c.From.String()),
			slog.String("to", c.To.String()))
	}
}

// MetricsObserver exports transitions to Prometheus.
func MetricsObserver() Observer {
	return func(c StateChange) {
		metrics.RecordBreakerTransition(c.Name, c.From.String(), c.To.String(), float64(c.To))
	}
}
