package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"council-backend/internal/resilience/circuitbreaker"
)

// BreakerStatsProvider exposes circuit breaker statistics.
// *circuitbreaker.Registry satisfies it.
type BreakerStatsProvider interface {
	AllStats() []circuitbreaker.Stats
}

// QueueDepthProvider reports the number of entries waiting in a queue.
// *audit.DeadLetterQueue satisfies it.
type QueueDepthProvider interface {
	Len(ctx context.Context) (int64, error)
}

// HealthServer provides HTTP endpoints for health checks.
//   - /health: Liveness probe (always returns 200 OK)
//   - /health/ready: Readiness probe (returns 200 if ready, 503 if not)
//   - /health/breakers: Circuit breaker states (503 if any breaker is open)
//   - /health/dlq: Audit dead-letter queue depth (503 if the queue cannot be read)
//
// The server supports graceful shutdown via context cancellation.
//
// Example usage:
//
//	healthServer := NewHealthServer(":9091", logger,
//	    WithBreakerStats(registry),
//	    WithQueueDepth(dlq))
//	go func() {
//	    if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
//	        logger.Error("health server failed", slog.Any("error", err))
//	    }
//	}()
//	healthServer.SetReady(true)  // Mark as ready after initialization
type HealthServer struct {
	addr     string
	logger   *slog.Logger
	isReady  *atomic.Bool
	server   *http.Server
	breakers BreakerStatsProvider
	queue    QueueDepthProvider
}

// HealthOption configures optional health endpoints.
type HealthOption func(*HealthServer)

// WithBreakerStats enables /health/breakers.
func WithBreakerStats(p BreakerStatsProvider) HealthOption {
	return func(h *HealthServer) { h.breakers = p }
}

// WithQueueDepth enables /health/dlq.
func WithQueueDepth(p QueueDepthProvider) HealthOption {
	return func(h *HealthServer) { h.queue = p }
}

// healthResponse is the JSON response format for health check endpoints.
type healthResponse struct {
	Status string `json:"status"`
}

type breakersResponse struct {
	Status   string                 `json:"status"`
	Breakers []circuitbreaker.Stats `json:"breakers"`
}

type queueResponse struct {
	Status string `json:"status"`
	Depth  int64  `json:"depth"`
}

// NewHealthServer creates a new health check server (not started yet).
func NewHealthServer(addr string, logger *slog.Logger, opts ...HealthOption) *HealthServer {
	isReady := &atomic.Bool{}
	isReady.Store(false) // Start as not ready

	h := &HealthServer{
		addr:    addr,
		logger:  logger,
		isReady: isReady,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handler returns the routing for all health endpoints.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)
	mux.HandleFunc("/health/breakers", h.handleBreakers)
	mux.HandleFunc("/health/dlq", h.handleQueue)
	return mux
}

// Start starts the health check HTTP server.
// This is a blocking call that runs until the context is cancelled or an error occurs.
// It supports graceful shutdown with a 5-second timeout.
//
// Returns:
//   - error: http.ErrServerClosed on graceful shutdown, other errors on failure
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if err == http.ErrServerClosed {
			return err
		}
		h.logger.Error("health server failed", slog.Any("error", err))
		return err
	}
}

// SetReady sets the readiness state reported by /health/ready.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

// handleLiveness always returns 200 OK with {"status":"ok"}.
func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleReadiness returns 200 OK once SetReady(true) was called, 503 otherwise.
func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.isReady.Load() {
		h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

// handleBreakers lists every live breaker. An open breaker degrades the status.
func (h *HealthServer) handleBreakers(w http.ResponseWriter, r *http.Request) {
	if h.breakers == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	resp := breakersResponse{Status: "ok", Breakers: h.breakers.AllStats()}
	if resp.Breakers == nil {
		resp.Breakers = []circuitbreaker.Stats{}
	}

	code := http.StatusOK
	for _, s := range resp.Breakers {
		if s.State == circuitbreaker.StateOpen {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}
	h.writeJSON(w, code, resp)
}

// handleQueue reports the dead-letter queue depth.
func (h *HealthServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	depth, err := h.queue.Len(r.Context())
	if err != nil {
		h.logger.Warn("failed to read dead-letter queue depth", slog.Any("error", err))
		h.writeJSON(w, http.StatusServiceUnavailable, queueResponse{Status: "unavailable", Depth: -1})
		return
	}
	h.writeJSON(w, http.StatusOK, queueResponse{Status: "ok", Depth: depth})
}

func (h *HealthServer) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
