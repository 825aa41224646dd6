package circuitbreaker

import (
	"errors"
	"fmt"
)

var (
	// ErrOpen is returned when the breaker rejects a call without invoking it,
	// either because it is open or because its half-open trial is in flight.
	ErrOpen = errors.New("circuit breaker is open")

	// ErrTimeout is returned when a call does not finish within the breaker timeout.
	ErrTimeout = errors.New("circuit breaker call timed out")

	// ErrBreakerShutdown is returned by a breaker that has been shut down.
	ErrBreakerShutdown = errors.New("circuit breaker is shut down")
)

// DependencyError reports that the wrapped operation failed or timed out.
type DependencyError struct {
	Name string
	Err  error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s: %v", e.Name, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}
