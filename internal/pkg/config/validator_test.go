package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCronSchedule(t *testing.T) {
	valid := []string{"*/5 * * * *", "30 5 * * *", "@every 5m", "@hourly"}
	for _, s := range valid {
		assert.NoError(t, ValidateCronSchedule(s), s)
	}

	invalid := []string{"", "every five minutes", "* * *", "61 * * * *"}
	for _, s := range invalid {
		assert.Error(t, ValidateCronSchedule(s), s)
	}
}

func TestValidateDuration(t *testing.T) {
	assert.NoError(t, ValidateDuration(time.Minute, time.Second, time.Hour))
	assert.NoError(t, ValidateDuration(time.Second, time.Second, time.Hour), "min is inclusive")
	assert.NoError(t, ValidateDuration(time.Hour, time.Second, time.Hour), "max is inclusive")
	assert.Error(t, ValidateDuration(time.Millisecond, time.Second, time.Hour))
	assert.Error(t, ValidateDuration(2*time.Hour, time.Second, time.Hour))
	assert.Error(t, ValidateDuration(time.Minute, time.Hour, time.Second), "inverted range")
}

func TestValidateIntRange(t *testing.T) {
	assert.NoError(t, ValidateIntRange(1, 1, 10))
	assert.NoError(t, ValidateIntRange(10, 1, 10))
	assert.EqualError(t, ValidateIntRange(0, 1, 10), "value 0 is below minimum 1")
	assert.EqualError(t, ValidateIntRange(11, 1, 10), "value 11 exceeds maximum 10")
	assert.Error(t, ValidateIntRange(5, 10, 1))
}

func TestValidateFloatRange(t *testing.T) {
	assert.NoError(t, ValidateFloatRange(0.5, 0, 1))
	assert.Error(t, ValidateFloatRange(-0.1, 0, 1))
	assert.Error(t, ValidateFloatRange(1.1, 0, 1))
	assert.Error(t, ValidateFloatRange(math.NaN(), 0, 1))
	assert.Error(t, ValidateFloatRange(0.5, 1, 0))
}

func TestValidatePositiveDuration(t *testing.T) {
	assert.NoError(t, ValidatePositiveDuration(time.Nanosecond))
	assert.EqualError(t, ValidatePositiveDuration(0), "duration must be positive, got 0s")
	assert.Error(t, ValidatePositiveDuration(-time.Second))
}
