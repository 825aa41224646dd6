// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the resilience and audit metrics:
//   - Circuit breaker state, calls, transitions and evictions
//   - Audit writes, dead-letter queue depth, overflow and reconcile outcomes
//   - Database query metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "council-backend/internal/observability/metrics"
//
//	func record(ctx context.Context) {
//	    start := time.Now()
//	    // ... insert audit record ...
//	    metrics.RecordAuditWrite(metrics.AuditOutcomeDirect)
//	    metrics.RecordOperationDuration("audit_insert", time.Since(start))
//	}
package metrics
