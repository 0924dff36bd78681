package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics exposes the health of one component's configuration
// load: when it last happened, which fields failed validation, and
// whether any field is running on a fallback value. The worker and the
// pipeline each own an instance, so a bad deploy shows up per
// component on the dashboard.
//
// Metric names are prefixed with the component, e.g.
// pipeline_config_fallbacks_total{field="relevance_threshold"}.
type ConfigMetrics struct {
	// LoadTimestamp is the Unix time of the last (re)load.
	LoadTimestamp prometheus.Gauge

	// ValidationErrorsTotal counts rejected values per field.
	ValidationErrorsTotal *prometheus.CounterVec

	// FallbacksTotal counts applied default values per field.
	FallbacksTotal *prometheus.CounterVec

	// FallbackActive is 1 while any field runs on a fallback.
	FallbackActive prometheus.Gauge

	component string
}

// NewConfigMetrics registers the config metric set for one component
// with the default registry. Component names must be unique per
// process; promauto panics on a duplicate registration, which is the
// behavior we want for a wiring mistake.
func NewConfigMetrics(component string) *ConfigMetrics {
	return &ConfigMetrics{
		LoadTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: component,
			Subsystem: "config",
			Name:      "load_timestamp",
			Help:      "Unix timestamp of the last configuration load.",
		}),

		ValidationErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: component,
			Subsystem: "config",
			Name:      "validation_errors_total",
			Help:      "Configuration values rejected by validation, per field.",
		}, []string{"field"}),

		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: component,
			Subsystem: "config",
			Name:      "fallbacks_total",
			Help:      "Default values applied in place of rejected configuration, per field.",
		}, []string{"field"}),

		FallbackActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: component,
			Subsystem: "config",
			Name:      "fallback_active",
			Help:      "1 while any configuration field is running on a fallback value.",
		}),

		component: component,
	}
}

// RecordLoadTimestamp stamps a completed configuration load.
func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

// RecordValidationError counts one rejected value for field.
func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

// RecordFallback counts one applied default for field.
func (m *ConfigMetrics) RecordFallback(field string) {
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

// SetFallbackActive raises or clears the degraded-config flag. Callers
// set it once per load with the aggregate outcome rather than per
// field, so the gauge reads as "this component's config is degraded".
func (m *ConfigMetrics) SetFallbackActive(active bool) {
	if active {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}
