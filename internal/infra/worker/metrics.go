package worker

import (
	"council-backend/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the worker component.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// metrics for the scheduled reconciliation job.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Worker-specific metrics:
//   - worker_reconcile_job_runs_total: Total reconcile runs by status (success/failure)
//   - worker_reconcile_job_duration_seconds: Duration histogram of reconcile runs
//   - worker_reconcile_job_last_success_timestamp: Unix timestamp of last successful run
//
// Per-entry outcomes (written, expired, failed) are exported by the audit
// package itself; these metrics only describe the job.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// ReconcileRunsTotal counts reconcile runs.
	// Labels: status (success, failure)
	ReconcileRunsTotal *prometheus.CounterVec

	// ReconcileDurationSeconds measures how long a run took.
	ReconcileDurationSeconds prometheus.Histogram

	// ReconcileLastSuccessTimestamp records the Unix timestamp of the last successful run.
	ReconcileLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates worker metrics registered with reg.
// The process passes prometheus.DefaultRegisterer; tests pass a fresh registry.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics(reg, "worker"),

		ReconcileRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_reconcile_job_runs_total",
			Help: "Total number of audit reconcile runs by status (success/failure)",
		}, []string{"status"}),

		ReconcileDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_reconcile_job_duration_seconds",
			Help:    "Duration of audit reconcile runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60},
		}),

		ReconcileLastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_reconcile_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful audit reconcile run",
		}),
	}
}

// RecordJobRun increments the run counter for status ("success" or "failure").
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.ReconcileRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes the duration of a run in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.ReconcileDurationSeconds.Observe(seconds)
}

// RecordLastSuccess records the current time as the last successful run.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.ReconcileLastSuccessTimestamp.SetToCurrentTime()
}
