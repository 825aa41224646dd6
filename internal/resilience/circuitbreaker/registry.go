package circuitbreaker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"council-backend/internal/observability/metrics"
)

// DefaultMaxBreakers bounds the registry when RegistryConfig.MaxBreakers is unset.
const DefaultMaxBreakers = 100

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// MaxBreakers is the most breakers held at once.
	MaxBreakers int

	// EvictionHeadroom is how far below MaxBreakers the registry shrinks when
	// it is full. Defaults to 10% of MaxBreakers, at least 1.
	EvictionHeadroom int

	// Default applies to names without a registered preset.
	Default Config
}

// DefaultRegistryConfig returns the platform defaults.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaxBreakers: DefaultMaxBreakers,
		Default:     DefaultConfig(),
	}
}

func (c RegistryConfig) withDefaults() RegistryConfig {
	if c.MaxBreakers <= 0 {
		c.MaxBreakers = DefaultMaxBreakers
	}
	if c.EvictionHeadroom <= 0 {
		c.EvictionHeadroom = max(1, c.MaxBreakers/10)
	}
	if c.EvictionHeadroom >= c.MaxBreakers {
		c.EvictionHeadroom = c.MaxBreakers - 1
	}
	c.Default = c.Default.withDefaults()
	return c
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for eviction logs and the built-in log observer.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithClock overrides the time source for last-used tracking.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// WithoutDefaultObservers disables the built-in log and metrics observers.
func WithoutDefaultObservers() RegistryOption {
	return func(r *Registry) {
		r.skipDefaultObservers = true
	}
}

// Registry owns a bounded set of named breakers, evicting the least recently
// used when full. It is safe for concurrent use.
type Registry struct {
	cfg    RegistryConfig
	logger *slog.Logger
	now    func() time.Time

	skipDefaultObservers bool

	mu       sync.Mutex
	breakers *simplelru.LRU[string, *Breaker]
	presets  map[string]Config
	closed   bool

	obsMu     sync.RWMutex
	observers map[uint64]Observer
	nextObsID uint64
}

// NewRegistry creates a registry. It is meant to be built once at process
// start and passed to every caller.
func NewRegistry(cfg RegistryConfig, opts ...RegistryOption) *Registry {
	r := &Registry{
		cfg:       cfg.withDefaults(),
		logger:    slog.Default(),
		now:       time.Now,
		presets:   make(map[string]Config),
		observers: make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(r)
	}

	// Eviction is driven by GetOrCreate, so the LRU itself never overflows.
	lru, err := simplelru.NewLRU[string, *Breaker](r.cfg.MaxBreakers, r.onRemove)
	if err != nil {
		// unreachable: MaxBreakers is positive after withDefaults
		panic(err)
	}
	r.breakers = lru

	if !r.skipDefaultObservers {
		r.Subscribe(LogObserver(r.logger))
		r.Subscribe(MetricsObserver())
	}
	return r
}

// Register sets the configuration used when a breaker named name is created.
// It does not affect a breaker that already exists.
func (r *Registry) Register(name string, cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[name] = cfg.withDefaults()
}

// Subscribe adds an observer for state transitions of every breaker and
// returns a function that removes it.
func (r *Registry) Subscribe(o Observer) (unsubscribe func()) {
	r.obsMu.Lock()
	id := r.nextObsID
	r.nextObsID++
	r.observers[id] = o
	r.obsMu.Unlock()

	return func() {
		r.obsMu.Lock()
		delete(r.observers, id)
		r.obsMu.Unlock()
	}
}

func (r *Registry) publish(c StateChange) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o(c)
	}
}

// Get returns the breaker for name without creating it or refreshing its recency.
func (r *Registry) Get(name string) (*Breaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.breakers.Peek(name)
}

// GetOrCreate returns the breaker for name, creating it with cfg if absent.
// Zero fields in cfg take the defaults. The breaker becomes the most recently used.
func (r *Registry) GetOrCreate(name string, cfg Config) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(name, cfg)
}

func (r *Registry) getOrCreateLocked(name string, cfg Config) *Breaker {
	if b, ok := r.breakers.Get(name); ok {
		b.touch()
		return b
	}

	b := newBreaker(name, cfg, r.now, r.publish)
	if r.closed {
		b.Shutdown()
		return b
	}

	if r.breakers.Len() >= r.cfg.MaxBreakers {
		r.evictLocked()
	}
	r.breakers.Add(name, b)
	metrics.BreakerState.WithLabelValues(name).Set(float64(StateClosed))
	metrics.UpdateBreakersActive(r.breakers.Len())
	return b
}

// evictLocked drops least recently used breakers until a new one fits with
// EvictionHeadroom to spare.
func (r *Registry) evictLocked() {
	target := r.cfg.MaxBreakers - r.cfg.EvictionHeadroom - 1
	for r.breakers.Len() > target {
		name, b, ok := r.breakers.RemoveOldest()
		if !ok {
			return
		}
		metrics.RecordBreakerEvicted()
		r.logger.Info("circuit breaker evicted",
			slog.String("circuit", name),
			slog.Time("last_used", b.lastUsedAt()))
	}
}

// onRemove runs whenever a breaker leaves the LRU.
func (r *Registry) onRemove(name string, b *Breaker) {
	b.Shutdown()
	metrics.ForgetBreaker(name)
}

func (r *Registry) configFor(name string) Config {
	if cfg, ok := r.presets[name]; ok {
		return cfg
	}
	return r.cfg.Default
}

// Ensure returns the breaker for name, creating it from the registered
// preset or the registry default.
func (r *Registry) Ensure(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(name, r.configFor(name))
}

// Execute runs fn through the breaker for name, see Ensure.
func (r *Registry) Execute(ctx context.Context, name string, fn Operation, fallback Fallback) (any, error) {
	return r.Ensure(name).Execute(ctx, fn, fallback)
}

// GetStats returns the stats for name, or false if no such breaker exists.
func (r *Registry) GetStats(name string) (Stats, bool) {
	b, ok := r.Get(name)
	if !ok {
		return Stats{}, false
	}
	return b.Stats(), true
}

// AllStats returns stats for every breaker, least recently used first.
func (r *Registry) AllStats() []Stats {
	r.mu.Lock()
	breakers := r.breakers.Values()
	r.mu.Unlock()

	out := make([]Stats, 0, len(breakers))
	for _, b := range breakers {
		out = append(out, b.Stats())
	}
	return out
}

// Names returns the breaker names, least recently used first.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.breakers.Keys()
}

// Len returns the number of breakers held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.breakers.Len()
}

// Remove shuts down and drops the breaker for name.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.breakers.Remove(name)
	metrics.UpdateBreakersActive(r.breakers.Len())
	return removed
}

// Shutdown shuts down every breaker. Breakers handed out afterwards are
// already shut down.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.breakers.Purge()
	metrics.UpdateBreakersActive(0)
}

// Execute is the typed form of Registry.Execute.
func Execute[T any](ctx context.Context, r *Registry, name string, fn func(context.Context) (T, error), fallback func(context.Context, error) (T, error)) (T, error) {
	var fb Fallback
	if fallback != nil {
		fb = func(ctx context.Context, err error) (any, error) {
			return fallback(ctx, err)
		}
	}

	v, err := r.Execute(ctx, name, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, fb)
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
