// Package inference provides clients for hosted language model APIs.
//
// Each client implements Provider and talks to exactly one upstream. Callers
// never use the clients directly; they wrap them in Guarded so every request
// passes through the named circuit breaker of that upstream and can fall back
// to another provider while it is unavailable.
package inference

import (
	"context"
	"errors"
	"fmt"

	"council-backend/internal/resilience/retry"
)

// Provider completes a prompt against a hosted model.
type Provider interface {
	// Name is the circuit breaker name guarding this provider.
	Name() string
	// Complete returns the model's text answer to prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	// ErrEmptyResponse is returned when the upstream answered without any text.
	ErrEmptyResponse = errors.New("inference: empty response")

	// ErrEmptyPrompt is returned before any request is made for a blank prompt.
	ErrEmptyPrompt = errors.New("inference: empty prompt")
)

// statusError converts an upstream status code into a retry.HTTPError so the
// retry policy can tell transient failures from permanent ones.
func statusError(provider string, status int, err error) error {
	if status == 0 {
		return fmt.Errorf("%s api error: %w", provider, err)
	}
	return fmt.Errorf("%s api error: %w", provider, &retry.HTTPError{
		StatusCode: status,
		Message:    err.Error(),
	})
}
