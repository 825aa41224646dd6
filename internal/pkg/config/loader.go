// Package config provides environment-variable loaders with validation and a
// fail-open fallback: an invalid value never aborts startup, it is replaced by the
// default and reported as a warning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigLoadResult represents the result of loading a configuration value.
//
// Fields:
//   - Value: The loaded configuration value (the default if parsing or validation failed)
//   - Warnings: One message per fallback applied
//   - FallbackApplied: True if the default value was used due to an invalid setting
//
// Example:
//
//	result := LoadEnvDuration("AUDIT_RECONCILE_INTERVAL", 5*time.Minute, ValidatePositiveDuration)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        logger.Warn("Configuration fallback applied", slog.String("warning", warning))
//	    }
//	}
//	interval := result.Value.(time.Duration)
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// LoadEnvString loads a string value from an environment variable.
// If the environment variable is not set, the default value is returned.
// No validation is performed.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string value and validates it.
// Unset or empty variables yield the default without a warning.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	return loadEnv(envKey, defaultValue,
		func(s string) (string, error) { return s, nil },
		validator)
}

// LoadEnvDuration loads a Go duration string ("30s", "5m", "1h30m").
// Unparseable or invalid values fall back to the default with a warning.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer. Surrounding whitespace is rejected.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadEnvFloat loads a floating point value such as a failure ratio ("0.5").
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, func(s string) (float64, error) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float format")
		}
		return v, nil
	}, validator)
}

// LoadEnvBool loads a boolean accepting the strconv.ParseBool spellings.
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, func(s string) (bool, error) {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
		return v, nil
	}, nil)
}

// loadEnv is the shared parse → validate → fallback pipeline.
func loadEnv[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	fallback := func(err error) ConfigLoadResult {
		warning := fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'",
			envKey, strings.TrimSpace(raw), err, defaultValue)
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        []string{warning},
			FallbackApplied: true,
		}
	}

	parsed, err := parse(raw)
	if err != nil {
		return fallback(err)
	}
	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallback(err)
		}
	}
	return ConfigLoadResult{Value: parsed}
}
