package audit

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultDLQKey is the list holding dead-letter entries, newest at the head.
const DefaultDLQKey = "audit:dlq"

// Config holds the dead-letter queue tunables.
type Config struct {
	// Key is the KV store list used for the queue.
	Key string

	// MaxSize caps the queue; the oldest entries are dropped beyond it.
	MaxSize int64

	// BatchSize is how many of the oldest entries one reconcile pass handles.
	BatchSize int64

	// StaleAfter is the age past which an entry is discarded unwritten.
	StaleAfter time.Duration
}

// DefaultConfig returns the default dead-letter queue configuration.
func DefaultConfig() Config {
	return Config{
		Key:        DefaultDLQKey,
		MaxSize:    1000,
		BatchSize:  50,
		StaleAfter: 7 * 24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Key == "" {
		c.Key = d.Key
	}
	if c.MaxSize <= 0 {
		c.MaxSize = d.MaxSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = d.StaleAfter
	}
	return c
}

type options struct {
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

func defaultOptions() options {
	return options{
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
}

// Option customizes the writer, queue and reconciler.
type Option func(*options)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithIDGenerator overrides how record and entry IDs are generated.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		o.newID = newID
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
