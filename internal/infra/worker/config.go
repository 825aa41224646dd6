package worker

import (
	"fmt"
	"log/slog"
	"time"

	"council-backend/internal/pkg/config"
	"council-backend/internal/resilience/circuitbreaker"
	"council-backend/internal/usecase/audit"
)

// WorkerConfig holds the configuration for the worker component.
// It controls how often the audit dead-letter queue is reconciled, how large
// that queue may grow, and how the shared circuit breaker registry behaves.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Example usage:
//
//	cfg, _ := LoadConfigFromEnv(logger, metrics)
//	dlq := audit.NewDeadLetterQueue(store, cfg.AuditConfig())
//	registry, _ := circuitbreaker.NewRegistry(cfg.RegistryConfig())
type WorkerConfig struct {
	// ReconcileInterval is the period between two reconciliation passes.
	// Range: 10s-24h
	// Default: 5 minutes
	ReconcileInterval time.Duration

	// DLQMaxSize caps the number of entries kept in the dead-letter queue.
	// Range: 1-1000000
	// Default: 1000
	DLQMaxSize int

	// DLQBatchSize is the number of entries a reconciliation pass examines.
	// Range: 1-10000
	// Default: 50
	DLQBatchSize int

	// DLQStaleAfter is the age after which a queued entry is discarded.
	// Range: 1h-90 days
	// Default: 7 days
	DLQStaleAfter time.Duration

	// BreakerMaxCount bounds the number of live circuit breakers.
	// Range: 1-10000
	// Default: 100
	BreakerMaxCount int

	// BreakerTimeout is the per-call timeout for dependencies without a preset.
	// Range: 100ms-5m
	// Default: 10 seconds
	BreakerTimeout time.Duration

	// BreakerFailureRatio is the failure ratio at which a breaker opens.
	// Range: 0.01-1.0
	// Default: 0.5
	BreakerFailureRatio float64

	// BreakerMinRequests is the request volume required before the ratio is evaluated.
	// Range: 1-10000
	// Default: 5
	BreakerMinRequests int

	// BreakerCoolDown is how long an open breaker waits before allowing a trial call.
	// Range: 1s-1h
	// Default: 30 seconds
	BreakerCoolDown time.Duration

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with production defaults.
func DefaultConfig() WorkerConfig {
	auditDefaults := audit.DefaultConfig()
	breakerDefaults := circuitbreaker.DefaultConfig()

	return WorkerConfig{
		ReconcileInterval:   5 * time.Minute,
		DLQMaxSize:          int(auditDefaults.MaxSize),
		DLQBatchSize:        int(auditDefaults.BatchSize),
		DLQStaleAfter:       auditDefaults.StaleAfter,
		BreakerMaxCount:     circuitbreaker.DefaultMaxBreakers,
		BreakerTimeout:      breakerDefaults.Timeout,
		BreakerFailureRatio: breakerDefaults.FailureRatio,
		BreakerMinRequests:  int(breakerDefaults.MinRequests),
		BreakerCoolDown:     breakerDefaults.CoolDown,
		HealthPort:          9091,
	}
}

// Validate checks every field and returns all violations together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := validateReconcileInterval(c.ReconcileInterval); err != nil {
		errs = append(errs, fmt.Errorf("reconcile interval: %w", err))
	}
	if err := validateDLQMaxSize(c.DLQMaxSize); err != nil {
		errs = append(errs, fmt.Errorf("dlq max size: %w", err))
	}
	if err := validateDLQBatchSize(c.DLQBatchSize); err != nil {
		errs = append(errs, fmt.Errorf("dlq batch size: %w", err))
	}
	if err := validateDLQStaleAfter(c.DLQStaleAfter); err != nil {
		errs = append(errs, fmt.Errorf("dlq stale after: %w", err))
	}
	if err := validateBreakerMaxCount(c.BreakerMaxCount); err != nil {
		errs = append(errs, fmt.Errorf("breaker max count: %w", err))
	}
	if err := validateBreakerTimeout(c.BreakerTimeout); err != nil {
		errs = append(errs, fmt.Errorf("breaker timeout: %w", err))
	}
	if err := validateBreakerFailureRatio(c.BreakerFailureRatio); err != nil {
		errs = append(errs, fmt.Errorf("breaker failure ratio: %w", err))
	}
	if err := validateBreakerMinRequests(c.BreakerMinRequests); err != nil {
		errs = append(errs, fmt.Errorf("breaker min requests: %w", err))
	}
	if err := validateBreakerCoolDown(c.BreakerCoolDown); err != nil {
		errs = append(errs, fmt.Errorf("breaker cool-down: %w", err))
	}
	if err := validateHealthPort(c.HealthPort); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

func validateReconcileInterval(d time.Duration) error {
	return config.ValidateDuration(d, 10*time.Second, 24*time.Hour)
}

func validateDLQMaxSize(v int) error { return config.ValidateIntRange(v, 1, 1_000_000) }

func validateDLQBatchSize(v int) error { return config.ValidateIntRange(v, 1, 10_000) }

func validateDLQStaleAfter(d time.Duration) error {
	return config.ValidateDuration(d, time.Hour, 90*24*time.Hour)
}

func validateBreakerMaxCount(v int) error { return config.ValidateIntRange(v, 1, 10_000) }

func validateBreakerTimeout(d time.Duration) error {
	return config.ValidateDuration(d, 100*time.Millisecond, 5*time.Minute)
}

func validateBreakerFailureRatio(v float64) error { return config.ValidateFloatRange(v, 0.01, 1.0) }

func validateBreakerMinRequests(v int) error { return config.ValidateIntRange(v, 1, 10_000) }

func validateBreakerCoolDown(d time.Duration) error {
	return config.ValidateDuration(d, time.Second, time.Hour)
}

func validateHealthPort(v int) error { return config.ValidateIntRange(v, 1024, 65535) }

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. If a value does not parse or validate: keep the default, log a warning, record metrics
//  4. Never return error - always return a valid configuration
//
// Environment variables:
//   - AUDIT_RECONCILE_INTERVAL: Duration 10s-24h (default: 5m)
//   - AUDIT_DLQ_MAX_SIZE: Integer 1-1000000 (default: 1000)
//   - AUDIT_DLQ_BATCH_SIZE: Integer 1-10000 (default: 50)
//   - AUDIT_DLQ_STALE_AFTER: Duration 1h-2160h (default: 168h)
//   - BREAKER_MAX_COUNT: Integer 1-10000 (default: 100)
//   - BREAKER_TIMEOUT: Duration 100ms-5m (default: 10s)
//   - BREAKER_FAILURE_RATIO: Float 0.01-1.0 (default: 0.5)
//   - BREAKER_MIN_REQUESTS: Integer 1-10000 (default: 5)
//   - BREAKER_COOLDOWN: Duration 1s-1h (default: 30s)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
//
// Warning log format:
//
//	logger.Warn("Configuration fallback applied",
//	    slog.String("field", "ReconcileInterval"),
//	    slog.String("warning", "..."))
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	observe := func(field, metricField string, result config.ConfigLoadResult) {
		if !metrics.Observe(metricField, result) {
			return
		}
		fallbackApplied = true
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	result := config.LoadEnvDuration("AUDIT_RECONCILE_INTERVAL", cfg.ReconcileInterval, validateReconcileInterval)
	cfg.ReconcileInterval = result.Value.(time.Duration)
	observe("ReconcileInterval", "reconcile_interval", result)

	result = config.LoadEnvInt("AUDIT_DLQ_MAX_SIZE", cfg.DLQMaxSize, validateDLQMaxSize)
	cfg.DLQMaxSize = result.Value.(int)
	observe("DLQMaxSize", "dlq_max_size", result)

	result = config.LoadEnvInt("AUDIT_DLQ_BATCH_SIZE", cfg.DLQBatchSize, validateDLQBatchSize)
	cfg.DLQBatchSize = result.Value.(int)
	observe("DLQBatchSize", "dlq_batch_size", result)

	result = config.LoadEnvDuration("AUDIT_DLQ_STALE_AFTER", cfg.DLQStaleAfter, validateDLQStaleAfter)
	cfg.DLQStaleAfter = result.Value.(time.Duration)
	observe("DLQStaleAfter", "dlq_stale_after", result)

	result = config.LoadEnvInt("BREAKER_MAX_COUNT", cfg.BreakerMaxCount, validateBreakerMaxCount)
	cfg.BreakerMaxCount = result.Value.(int)
	observe("BreakerMaxCount", "breaker_max_count", result)

	result = config.LoadEnvDuration("BREAKER_TIMEOUT", cfg.BreakerTimeout, validateBreakerTimeout)
	cfg.BreakerTimeout = result.Value.(time.Duration)
	observe("BreakerTimeout", "breaker_timeout", result)

	result = config.LoadEnvFloat("BREAKER_FAILURE_RATIO", cfg.BreakerFailureRatio, validateBreakerFailureRatio)
	cfg.BreakerFailureRatio = result.Value.(float64)
	observe("BreakerFailureRatio", "breaker_failure_ratio", result)

	result = config.LoadEnvInt("BREAKER_MIN_REQUESTS", cfg.BreakerMinRequests, validateBreakerMinRequests)
	cfg.BreakerMinRequests = result.Value.(int)
	observe("BreakerMinRequests", "breaker_min_requests", result)

	result = config.LoadEnvDuration("BREAKER_COOLDOWN", cfg.BreakerCoolDown, validateBreakerCoolDown)
	cfg.BreakerCoolDown = result.Value.(time.Duration)
	observe("BreakerCoolDown", "breaker_cooldown", result)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, validateHealthPort)
	cfg.HealthPort = result.Value.(int)
	observe("HealthPort", "health_port", result)

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}

// AuditConfig converts the DLQ settings into the audit package configuration.
func (c *WorkerConfig) AuditConfig() audit.Config {
	cfg := audit.DefaultConfig()
	cfg.MaxSize = int64(c.DLQMaxSize)
	cfg.BatchSize = int64(c.DLQBatchSize)
	cfg.StaleAfter = c.DLQStaleAfter
	return cfg
}

// RegistryConfig converts the breaker settings into a registry configuration.
// Named presets registered on the registry still take precedence.
func (c *WorkerConfig) RegistryConfig() circuitbreaker.RegistryConfig {
	cfg := circuitbreaker.DefaultRegistryConfig()
	cfg.MaxBreakers = c.BreakerMaxCount
	cfg.Default = circuitbreaker.Config{
		Timeout:      c.BreakerTimeout,
		FailureRatio: c.BreakerFailureRatio,
		MinRequests:  uint32(c.BreakerMinRequests),
		CoolDown:     c.BreakerCoolDown,
		Interval:     circuitbreaker.DefaultInterval,
	}
	return cfg
}
