// Package resilience provides reliability and fault tolerance patterns for the application.
// It includes implementations of circuit breakers and retry logic to keep the
// service responsive when inference providers or backing stores fail.
//
// The package supports:
//   - A bounded registry of per-dependency circuit breakers (Claude, OpenAI, database)
//   - Retry logic with exponential backoff and jitter
//
// Usage Example:
//
//	reg := circuitbreaker.NewRegistry(circuitbreaker.DefaultRegistryConfig())
//	answer, err := circuitbreaker.Execute(ctx, reg, "claude-api",
//	    func(ctx context.Context) (string, error) {
//	        return callProvider(ctx)
//	    }, nil)
//
//	retryConfig := retry.DefaultConfig()
//	err := retry.WithBackoff(ctx, retryConfig, func() error {
//	    return performOperation()
//	})
package resilience
