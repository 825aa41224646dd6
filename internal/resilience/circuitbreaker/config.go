// Package circuitbreaker provides per-dependency circuit breakers for external service calls.
// It uses the github.com/sony/gobreaker library for the state machine and keeps a bounded,
// least-recently-used registry of breakers keyed by dependency name.
package circuitbreaker

import "time"

// Default tunables applied to zero-valued Config fields.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultFailureRatio = 0.5
	DefaultMinRequests  = 5
	DefaultCoolDown     = 30 * time.Second
	DefaultInterval     = 60 * time.Second
)

// Well-known breaker names for the inference providers.
const (
	NameClaudeAPI    = "claude-api"
	NameOpenAIAPI    = "openai-api"
	NameEmbeddingAPI = "embedding-api"
)

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Timeout bounds a single call. A call exceeding it counts as a failure.
	Timeout time.Duration

	// FailureRatio is the failure ratio threshold to trip the circuit.
	// For example, 0.5 means 50% of calls in the window failed.
	FailureRatio float64

	// MinRequests is the minimum number of requests before calculating failure ratio
	MinRequests uint32

	// CoolDown is how long to stay open before permitting a trial call
	CoolDown time.Duration

	// Interval is the cyclic period of the closed state to clear success/failure counts
	Interval time.Duration
}

// DefaultConfig returns a default configuration for circuit breakers.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		FailureRatio: DefaultFailureRatio,
		MinRequests:  DefaultMinRequests,
		CoolDown:     DefaultCoolDown,
		Interval:     DefaultInterval,
	}
}

// ClaudeAPIConfig returns configuration optimized for Claude API calls.
// Completions are slow, so the call timeout is generous.
func ClaudeAPIConfig() Config {
	return Config{
		Timeout:      60 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
		CoolDown:     60 * time.Second,
		Interval:     30 * time.Second,
	}
}

// OpenAIAPIConfig returns configuration optimized for OpenAI API calls.
func OpenAIAPIConfig() Config {
	return Config{
		Timeout:      60 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
		CoolDown:     60 * time.Second,
		Interval:     30 * time.Second,
	}
}

// EmbeddingAPIConfig returns configuration for embedding calls, which are short
// and high-volume.
func EmbeddingAPIConfig() Config {
	return Config{
		Timeout:      5 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  10,
		CoolDown:     30 * time.Second,
		Interval:     60 * time.Second,
	}
}

// withDefaults returns cfg with every non-positive field replaced by its default.
func (cfg Config) withDefaults() Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = DefaultFailureRatio
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = DefaultMinRequests
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = DefaultCoolDown
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return cfg
}
