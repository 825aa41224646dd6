package circuitbreaker

import (
	"context"
	"database/sql"
	"time"
)

// NameDatabase is the breaker guarding writes to the primary database.
const NameDatabase = "database"

// DBConfig returns configuration optimized for database circuit breakers.
// Opens after 5 consecutive failures and probes again after 30 seconds.
func DBConfig() Config {
	return Config{
		Timeout:      5 * time.Second,
		FailureRatio: 1.0, // Open on 100% failure (5+ consecutive failures)
		MinRequests:  5,
		CoolDown:     30 * time.Second,
		Interval:     time.Minute,
	}
}

// DBCircuitBreaker wraps a database connection with circuit breaker protection.
// While the database is down, writes fail fast with ErrOpen instead of waiting
// on connection timeouts.
type DBCircuitBreaker struct {
	reg *Registry
	db  *sql.DB
}

// NewDBCircuitBreaker registers DBConfig under NameDatabase and wraps db.
func NewDBCircuitBreaker(reg *Registry, db *sql.DB) *DBCircuitBreaker {
	return NewDBCircuitBreakerWithConfig(reg, db, DBConfig())
}

// NewDBCircuitBreakerWithConfig wraps db using cfg for the database breaker.
func NewDBCircuitBreakerWithConfig(reg *Registry, db *sql.DB, cfg Config) *DBCircuitBreaker {
	reg.Register(NameDatabase, cfg)
	return &DBCircuitBreaker{reg: reg, db: db}
}

// ExecContext executes a statement with circuit breaker protection.
// If the circuit is open, it returns ErrOpen immediately without hitting the database.
func (dcb *DBCircuitBreaker) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return Execute(ctx, dcb.reg, NameDatabase, func(ctx context.Context) (sql.Result, error) {
		return dcb.db.ExecContext(ctx, query, args...)
	}, nil)
}

// QueryContext executes a query without breaker protection: the returned rows
// outlive the guarded call, and the breaker timeout would close them early.
func (dcb *DBCircuitBreaker) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return dcb.db.QueryContext(ctx, query, args...)
}

// PingContext checks connectivity through the breaker.
func (dcb *DBCircuitBreaker) PingContext(ctx context.Context) error {
	_, err := Execute(ctx, dcb.reg, NameDatabase, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, dcb.db.PingContext(ctx)
	}, nil)
	return err
}

// State returns the current state of the database breaker.
func (dcb *DBCircuitBreaker) State() State {
	if b, ok := dcb.reg.Get(NameDatabase); ok {
		return b.State()
	}
	return StateClosed
}

// IsOpen returns true if the circuit breaker is in the open state.
func (dcb *DBCircuitBreaker) IsOpen() bool {
	return dcb.State() == StateOpen
}

// DB returns the underlying database connection.
// This should only be used for operations that don't need circuit breaker protection.
func (dcb *DBCircuitBreaker) DB() *sql.DB {
	return dcb.db
}
