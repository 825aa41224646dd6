package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"council-backend/internal/domain/entity"
	pgRepo "council-backend/internal/infra/adapter/persistence/postgres"
	"council-backend/internal/infra/db"
	"council-backend/internal/infra/kvstore"
	workerPkg "council-backend/internal/infra/worker"
	"council-backend/internal/observability/logging"
	"council-backend/internal/observability/metrics"
	"council-backend/internal/pkg/config"
	"council-backend/internal/resilience/circuitbreaker"
	"council-backend/internal/resilience/retry"
	"council-backend/internal/usecase/audit"
)

// services are the long-lived components shared by the process.
type services struct {
	registry   *circuitbreaker.Registry
	writer     *audit.Writer
	dlq        *audit.DeadLetterQueue
	reconciler *audit.Reconciler
}

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker exited with error", logging.ErrorAttr(err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics(prometheus.DefaultRegisterer)
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.Duration("reconcile_interval", workerConfig.ReconcileInterval),
		slog.Int("dlq_max_size", workerConfig.DLQMaxSize),
		slog.Int("dlq_batch_size", workerConfig.DLQBatchSize),
		slog.Duration("dlq_stale_after", workerConfig.DLQStaleAfter),
		slog.Int("breaker_max_count", workerConfig.BreakerMaxCount),
		slog.Int("health_port", workerConfig.HealthPort))

	database, err := initDatabase(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	store, err := initStore(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close key-value store", slog.Any("error", err))
		}
	}()

	svc := setupServices(logger, workerConfig, database, store)
	defer svc.registry.Shutdown()

	scheduler := workerPkg.NewReconcileScheduler(svc.reconciler, workerConfig.ReconcileInterval, workerMetrics, logger)
	healthServer := workerPkg.NewHealthServer(
		fmt.Sprintf(":%d", workerConfig.HealthPort),
		logger,
		workerPkg.WithBreakerStats(svc.registry),
		workerPkg.WithQueueDepth(svc.dlq),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreServerClosed(healthServer.Start(gctx))
	})
	g.Go(func() error {
		return ignoreServerClosed(runMetricsServer(gctx, logger, getMetricsPort(logger)))
	})
	g.Go(func() error {
		reportDBStats(gctx, database, 15*time.Second)
		return nil
	})
	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		healthServer.SetReady(true)
		recordLifecycle(gctx, logger, svc.writer, "worker.started")

		<-gctx.Done()
		healthServer.SetReady(false)
		scheduler.Stop()
		recordLifecycle(context.WithoutCancel(gctx), logger, svc.writer, "worker.stopped")
		return nil
	})

	logger.Info("worker started")
	return g.Wait()
}

// initDatabase opens the database with retries and applies the schema.
func initDatabase(ctx context.Context, logger *slog.Logger) (*sql.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	database, err := retry.Do(ctx, retry.ConnectConfig(), func() (*sql.DB, error) {
		return db.Open(ctx, dsn)
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.MigrateUp(database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database ready")
	return database, nil
}

// initStore connects to Redis when REDIS_URL is set and falls back to an
// in-process store otherwise.
func initStore(ctx context.Context, logger *slog.Logger) (kvstore.Store, error) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		logger.Warn("REDIS_URL not set, audit dead-letter queue is kept in memory and lost on restart")
		return kvstore.NewMemory(), nil
	}

	store, err := retry.Do(ctx, retry.ConnectConfig(), func() (*kvstore.Redis, error) {
		s, err := kvstore.NewRedisFromURL(url)
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("redis connection established")
	return store, nil
}

// setupServices builds the breaker registry and everything guarded by it.
func setupServices(logger *slog.Logger, cfg *workerPkg.WorkerConfig, database *sql.DB, store kvstore.Store) *services {
	registry := circuitbreaker.NewRegistry(cfg.RegistryConfig(), circuitbreaker.WithLogger(logger))
	registry.Register(circuitbreaker.NameClaudeAPI, circuitbreaker.ClaudeAPIConfig())
	registry.Register(circuitbreaker.NameOpenAIAPI, circuitbreaker.OpenAIAPIConfig())
	registry.Register(circuitbreaker.NameEmbeddingAPI, circuitbreaker.EmbeddingAPIConfig())

	repo := pgRepo.NewAuditLogRepo(circuitbreaker.NewDBCircuitBreaker(registry, database))

	auditOpts := []audit.Option{audit.WithLogger(logger)}
	dlq := audit.NewDeadLetterQueue(store, cfg.AuditConfig(), auditOpts...)

	ensureProviderBreakers(logger, registry)

	return &services{
		registry:   registry,
		writer:     audit.NewWriter(repo, dlq, auditOpts...),
		dlq:        dlq,
		reconciler: audit.NewReconciler(repo, dlq, auditOpts...),
	}
}

// ensureProviderBreakers creates the breaker of every inference provider
// that has an API key, so it is reported on /health/breakers before the first
// call. It returns the breaker names in fallback order.
func ensureProviderBreakers(logger *slog.Logger, registry *circuitbreaker.Registry) []string {
	var names []string
	if config.LoadEnvString("ANTHROPIC_API_KEY", "") != "" {
		names = append(names, circuitbreaker.NameClaudeAPI)
	}
	if config.LoadEnvString("OPENAI_API_KEY", "") != "" {
		names = append(names, circuitbreaker.NameOpenAIAPI)
	}
	if len(names) == 0 {
		logger.Info("no inference provider configured")
		return nil
	}

	for _, name := range names {
		registry.Ensure(name)
	}
	logger.Info("inference provider breakers ready", slog.Any("breakers", names))
	return names
}

// recordLifecycle writes an audit record for a worker lifecycle event.
func recordLifecycle(ctx context.Context, logger *slog.Logger, writer *audit.Writer, action string) {
	host, _ := os.Hostname()
	rec := &entity.AuditRecord{
		Action:       action,
		ResourceType: "worker",
		ResourceID:   &host,
		Origin: entity.Origin{
			Metadata: map[string]any{"pid": os.Getpid()},
		},
	}
	if err := writer.Record(ctx, rec); err != nil {
		logger.Error("failed to record lifecycle event",
			slog.String("action", action),
			slog.Any("error", err))
	}
}

// reportDBStats publishes connection pool statistics until ctx is done.
func reportDBStats(ctx context.Context, database *sql.DB, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		metrics.UpdateDBConnectionStats(database.Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func ignoreServerClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
