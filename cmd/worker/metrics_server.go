package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"council-backend/internal/pkg/config"
)

const defaultMetricsPort = 9090

// HealthResponse represents a simple health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// newMetricsMux exposes the Prometheus registry and a liveness probe.
//
// Endpoints:
//   - GET /metrics - Prometheus metrics endpoint (scraped by Prometheus server)
//   - GET /health - Simple liveness probe (always returns 200 OK)
func newMetricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	return mux
}

// runMetricsServer serves newMetricsMux on port until ctx is cancelled.
// It returns http.ErrServerClosed after a graceful shutdown; in-flight
// requests get 5 seconds to complete.
func runMetricsServer(ctx context.Context, logger *slog.Logger, port int) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newMetricsMux(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		logger.Error("metrics server error", slog.Any("error", err))
		return err
	case <-ctx.Done():
	}

	logger.Info("metrics server shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", slog.Any("error", err))
		return err
	}
	logger.Info("metrics server stopped")
	return http.ErrServerClosed
}

// getMetricsPort reads METRICS_PORT, falling back to 9090 when unset or invalid.
func getMetricsPort(logger *slog.Logger) int {
	result := config.LoadEnvInt("METRICS_PORT", defaultMetricsPort, func(v int) error {
		return config.ValidateIntRange(v, 1, 65535)
	})
	for _, warning := range result.Warnings {
		logger.Warn("Configuration fallback applied",
			slog.String("field", "MetricsPort"),
			slog.String("warning", warning))
	}
	return result.Value.(int)
}

// healthHandler handles GET /health requests (liveness probe).
// Always returns 200 OK with {"status": "healthy"}.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy"})
}
