package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestRegistry() *Registry {
	return NewRegistry(RegistryConfig{MaxBreakers: 10}, WithoutDefaultObservers())
}

func TestNewDBCircuitBreaker(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	reg := newTestRegistry()
	dcb := NewDBCircuitBreaker(reg, db)

	if dcb.DB() != db {
		t.Error("expected DB() to return underlying database connection")
	}
	if dcb.State() != StateClosed {
		t.Errorf("expected initial state to be Closed, got %s", dcb.State())
	}
	if _, ok := reg.Get(NameDatabase); ok {
		t.Error("breaker should be created lazily on first call")
	}
}

func TestDBCircuitBreaker_ExecContext_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	reg := newTestRegistry()
	dcb := NewDBCircuitBreaker(reg, db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := dcb.ExecContext(context.Background(), "INSERT INTO audit_logs (id) VALUES ($1)", "a1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	affected, _ := result.RowsAffected()
	if affected != 1 {
		t.Errorf("expected 1 row affected, got %d", affected)
	}

	stats, ok := reg.GetStats(NameDatabase)
	if !ok {
		t.Fatal("expected database breaker to exist")
	}
	if stats.Successes != 1 {
		t.Errorf("expected 1 success, got %d", stats.Successes)
	}
	if b, _ := reg.Get(NameDatabase); b.Config() != DBConfig() {
		t.Errorf("expected DBConfig preset, got %+v", b.Config())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDBCircuitBreaker_CircuitOpens_AfterConsecutiveFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	dcb := NewDBCircuitBreaker(newTestRegistry(), db)
	ctx := context.Background()

	// Trip the circuit (5 consecutive failures)
	expectedErr := errors.New("database connection failed")
	for i := 0; i < 5; i++ {
		mock.ExpectExec("INSERT (.+)").WillReturnError(expectedErr)
	}
	for i := 0; i < 5; i++ {
		if _, err := dcb.ExecContext(ctx, "INSERT INTO audit_logs (id) VALUES ($1)", i); !errors.Is(err, expectedErr) {
			t.Fatalf("expected %v, got %v", expectedErr, err)
		}
	}

	if !dcb.IsOpen() {
		t.Fatal("expected circuit to be open")
	}

	// Next call fails fast without reaching the database
	_, err = dcb.ExecContext(ctx, "INSERT INTO audit_logs (id) VALUES ($1)", 6)
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDBCircuitBreaker_HalfOpen_AfterCoolDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	cfg := DBConfig()
	cfg.CoolDown = 50 * time.Millisecond
	dcb := NewDBCircuitBreakerWithConfig(newTestRegistry(), db, cfg)
	ctx := context.Background()

	expectedErr := errors.New("database connection failed")
	for i := 0; i < 5; i++ {
		mock.ExpectPing().WillReturnError(expectedErr)
	}
	for i := 0; i < 5; i++ {
		_ = dcb.PingContext(ctx)
	}
	if !dcb.IsOpen() {
		t.Fatal("expected circuit to be open")
	}

	time.Sleep(100 * time.Millisecond)

	mock.ExpectPing()
	if err := dcb.PingContext(ctx); err != nil {
		t.Fatalf("expected trial ping to succeed, got %v", err)
	}
	if dcb.State() != StateClosed {
		t.Errorf("expected Closed after successful trial, got %s", dcb.State())
	}
}

func TestDBCircuitBreaker_QueryContext_Passthrough(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	dcb := NewDBCircuitBreaker(newTestRegistry(), db)

	mock.ExpectQuery("SELECT (.+) FROM audit_logs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1"))

	rows, err := dcb.QueryContext(context.Background(), "SELECT id FROM audit_logs")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		t.Fatal("expected at least one row")
	}
	var id string
	if err := rows.Scan(&id); err != nil {
		t.Fatalf("failed to scan row: %v", err)
	}
	if id != "a1" {
		t.Errorf("expected id=a1, got %s", id)
	}
}

func TestDBConfig(t *testing.T) {
	cfg := DBConfig()

	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected Timeout 5s, got %v", cfg.Timeout)
	}
	if cfg.CoolDown != 30*time.Second {
		t.Errorf("expected CoolDown 30s, got %v", cfg.CoolDown)
	}
	if cfg.MinRequests != 5 {
		t.Errorf("expected MinRequests 5, got %d", cfg.MinRequests)
	}
	if cfg.FailureRatio != 1.0 {
		t.Errorf("expected FailureRatio 1.0, got %f", cfg.FailureRatio)
	}
}
