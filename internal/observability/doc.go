// Package observability groups the logging, metrics and tracing helpers
// shared by the worker, the audit pipeline and the circuit breaker registry.
//
// Subpackages:
//   - logging: slog setup and secret redaction for error attributes
//   - metrics: Prometheus collectors for breakers, audit writes and the DLQ
//   - tracing: OpenTelemetry span helpers
//
// Example usage:
//
//	import (
//	    "council-backend/internal/observability/logging"
//	    "council-backend/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started")
//
//	    metrics.RecordAuditWrite(metrics.AuditOutcomeDirect)
//	}
package observability
