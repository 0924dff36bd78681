package slo

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets define the service level objectives for digest generation.
// These targets are used to measure and monitor pipeline reliability.
const (
	// RunDeadline is the end-to-end latency budget for one user's digest run.
	// Every run is expected to finish within this window.
	RunDeadline = 15 * time.Minute

	// DeadlineComplianceSLO defines the target fraction of runs that finish
	// within RunDeadline (99% = at most 1 in 100 runs over budget)
	DeadlineComplianceSLO = 0.99

	// RunSuccessSLO defines the target fraction of runs that complete with a
	// digest payload, including empty digests (99.9%)
	RunSuccessSLO = 0.999

	// AIDegradationSLO defines the maximum acceptable fraction of articles
	// processed with AI fallbacks instead of real AI output (5% = 0.05)
	AIDegradationSLO = 0.05
)

// SLO tracking metrics
// These gauges are updated periodically (e.g., after each run batch) based on
// recent measurements to track whether the pipeline is meeting its targets.
var (
	// SLODeadlineCompliance tracks the fraction of recent runs that finished
	// within RunDeadline (0-1)
	SLODeadlineCompliance = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_run_deadline_compliance_ratio",
			Help: "Fraction of digest runs finishing within the 15 minute deadline, target: 0.99",
		},
	)

	// SLORunSuccess tracks the fraction of recent runs that produced a
	// payload (0-1)
	SLORunSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_run_success_ratio",
			Help: "Fraction of digest runs producing a payload, target: 0.999",
		},
	)

	// SLORunLatencyP95 tracks the current p95 run latency in seconds
	// calculated from digest_run_duration_seconds histogram
	SLORunLatencyP95 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_run_latency_p95_seconds",
			Help: "Current p95 digest run latency in seconds, budget: 900",
		},
	)

	// SLOAIDegradation tracks the fraction of articles that fell back to
	// non-AI processing (0-1)
	SLOAIDegradation = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_ai_degradation_ratio",
			Help: "Fraction of articles processed with AI fallbacks, target: <= 0.05",
		},
	)
)

// UpdateDeadlineCompliance updates the deadline compliance SLO metric.
// Call this periodically with the fraction of runs inside the deadline.
//
// Example calculation:
//
//	totalRuns := getRecentRunCount()
//	lateRuns := getRunsOverDeadline()
//	compliance := float64(totalRuns-lateRuns) / float64(totalRuns)
//	slo.UpdateDeadlineCompliance(compliance)
func UpdateDeadlineCompliance(ratio float64) {
	SLODeadlineCompliance.Set(ratio)
}

// UpdateRunSuccess updates the run success SLO metric.
// Call this periodically with the fraction of runs that produced a payload.
func UpdateRunSuccess(ratio float64) {
	SLORunSuccess.Set(ratio)
}

// UpdateRunLatencyP95 updates the p95 run latency SLO metric.
// Call this periodically with the calculated p95 latency in seconds.
//
// Example using Prometheus query:
//
//	histogram_quantile(0.95, rate(digest_run_duration_seconds_bucket[1h]))
func UpdateRunLatencyP95(seconds float64) {
	SLORunLatencyP95.Set(seconds)
}

// UpdateAIDegradation updates the AI degradation SLO metric.
// Call this periodically with the fraction of fallback-processed articles.
//
// Example calculation:
//
//	total := getProcessedArticleCount()
//	fallbacks := getFallbackArticleCount()
//	slo.UpdateAIDegradation(float64(fallbacks) / float64(total))
func UpdateAIDegradation(ratio float64) {
	SLOAIDegradation.Set(ratio)
}

// WithinDeadline reports whether a run duration met the per-user budget.
func WithinDeadline(d time.Duration) bool {
	return d <= RunDeadline
}
