package ai

import (
	"time"

	"dailybrief/internal/observability/metrics"
)

// CallRecorder abstracts call accounting so tests can inject a
// collecting recorder instead of the shared Prometheus registry.
type CallRecorder interface {
	// RecordCall records one API attempt with its outcome. Retries
	// count individually; a warm cache run records nothing.
	RecordCall(provider, operation string, duration time.Duration, err error)
}

// PrometheusCallRecorder delegates to the shared metrics registry.
// This is the production implementation.
type PrometheusCallRecorder struct{}

// NewPrometheusCallRecorder creates the production call recorder.
func NewPrometheusCallRecorder() *PrometheusCallRecorder {
	return &PrometheusCallRecorder{}
}

// RecordCall implements CallRecorder.
func (p *PrometheusCallRecorder) RecordCall(provider, operation string, duration time.Duration, err error) {
	metrics.RecordAICall(provider, operation, duration, err)
}

// NoopCallRecorder discards all recordings.
type NoopCallRecorder struct{}

// RecordCall implements CallRecorder.
func (NoopCallRecorder) RecordCall(string, string, time.Duration, error) {}
