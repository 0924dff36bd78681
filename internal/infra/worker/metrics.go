package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dailybrief/internal/pkg/config"
)

// WorkerMetrics exposes Prometheus metrics for the scheduled digest
// batch. It embeds ConfigMetrics so configuration fallbacks surface
// under the same component prefix.
//
// Batch metrics:
//   - worker_digest_batch_runs_total{status}: batch outcomes
//   - worker_digest_batch_duration_seconds: batch wall time
//   - worker_digest_users_processed_total{status}: per-user run outcomes
//   - worker_digest_batch_last_success_timestamp: last clean batch
type WorkerMetrics struct {
	*config.ConfigMetrics

	// BatchRunsTotal counts scheduled batches by outcome
	// (started, success, failure).
	BatchRunsTotal *prometheus.CounterVec

	// BatchDurationSeconds observes end-to-end batch wall time.
	BatchDurationSeconds prometheus.Histogram

	// UsersProcessedTotal counts per-user pipeline outcomes inside
	// batches, labeled with the workflow run status.
	UsersProcessedTotal *prometheus.CounterVec

	// BatchLastSuccessTimestamp records when a batch last finished
	// without a batch-level failure.
	BatchLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates and registers the worker metric set on the
// default registry. Create it once per process.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		BatchRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_digest_batch_runs_total",
			Help: "Total number of scheduled digest batches by status",
		}, []string{"status"}),

		BatchDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_digest_batch_duration_seconds",
			Help:    "Wall time of one scheduled digest batch in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 2700},
		}),

		UsersProcessedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_digest_users_processed_total",
			Help: "Per-user digest run outcomes across all batches",
		}, []string{"status"}),

		BatchLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_digest_batch_last_success_timestamp",
			Help: "Unix timestamp of the last successful digest batch",
		}),
	}
}

// MustRegister is a no-op kept for the conventional init sequence;
// promauto already registered everything in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {}

// RecordBatchRun counts one batch outcome: "started", "success" or
// "failure".
func (m *WorkerMetrics) RecordBatchRun(status string) {
	m.BatchRunsTotal.WithLabelValues(status).Inc()
}

// RecordBatchDuration observes the batch wall time in seconds.
func (m *WorkerMetrics) RecordBatchDuration(seconds float64) {
	m.BatchDurationSeconds.Observe(seconds)
}

// RecordUserProcessed counts one user's run outcome using the workflow
// status ("success", "empty", "failure").
func (m *WorkerMetrics) RecordUserProcessed(status string) {
	m.UsersProcessedTotal.WithLabelValues(status).Inc()
}

// RecordLastSuccess stamps the last clean batch completion.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.BatchLastSuccessTimestamp.SetToCurrentTime()
}
