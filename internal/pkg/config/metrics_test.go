package config

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// Component names must be unique across the whole test binary because
// promauto registers with the default registry.
var testComponentSeq int

func newTestMetrics(t *testing.T) *ConfigMetrics {
	t.Helper()
	testComponentSeq++
	return NewConfigMetrics(fmt.Sprintf("cfgtest_%d", testComponentSeq))
}

func TestNewConfigMetrics_AllCollectorsInitialized(t *testing.T) {
	m := newTestMetrics(t)

	assert.NotNil(t, m.LoadTimestamp)
	assert.NotNil(t, m.ValidationErrorsTotal)
	assert.NotNil(t, m.FallbacksTotal)
	assert.NotNil(t, m.FallbackActive)
}

func TestNewConfigMetrics_ComponentsIsolated(t *testing.T) {
	a := newTestMetrics(t)
	b := newTestMetrics(t)

	a.RecordValidationError("relevance_threshold")
	a.RecordValidationError("relevance_threshold")
	b.RecordValidationError("relevance_threshold")

	assert.Equal(t, float64(2),
		testutil.ToFloat64(a.ValidationErrorsTotal.WithLabelValues("relevance_threshold")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(b.ValidationErrorsTotal.WithLabelValues("relevance_threshold")))
}

func TestRecordLoadTimestamp(t *testing.T) {
	m := newTestMetrics(t)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.LoadTimestamp))
	m.RecordLoadTimestamp()
	assert.Greater(t, testutil.ToFloat64(m.LoadTimestamp), float64(0))
}

func TestCountersTrackPerField(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordValidationError("fetch_timeout")
	m.RecordValidationError("fetch_timeout")
	m.RecordValidationError("boost_factor")
	m.RecordFallback("fetch_timeout")
	m.RecordFallback("max_topics")

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("fetch_timeout")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("boost_factor")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("fetch_timeout")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("max_topics")))
	assert.Equal(t, float64(0),
		testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("boost_factor")))
}

func TestSetFallbackActive(t *testing.T) {
	m := newTestMetrics(t)

	m.SetFallbackActive(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FallbackActive))

	m.SetFallbackActive(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.FallbackActive))

	// Repeated sets to the same value stay stable.
	m.SetFallbackActive(true)
	m.SetFallbackActive(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FallbackActive))
}

// TestDegradedLoadScenario walks the sequence a load with two bad knobs
// produces: error + fallback per field, then the aggregate flag.
func TestDegradedLoadScenario(t *testing.T) {
	m := newTestMetrics(t)

	for _, field := range []string{"similarity_threshold", "boost_factor"} {
		m.RecordValidationError(field)
		m.RecordFallback(field)
	}
	m.SetFallbackActive(true)
	m.RecordLoadTimestamp()

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("similarity_threshold")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("boost_factor")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(m.LoadTimestamp), float64(0))
}

func TestCleanLoadScenario(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordLoadTimestamp()
	m.SetFallbackActive(false)

	assert.Equal(t, float64(0),
		testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("any_field")))
	assert.Equal(t, float64(0),
		testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("any_field")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.FallbackActive))
}

func TestConcurrentRecording(t *testing.T) {
	m := newTestMetrics(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordLoadTimestamp()
			m.RecordValidationError("shared_field")
			m.RecordFallback("shared_field")
			m.SetFallbackActive(true)
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(10),
		testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("shared_field")))
	assert.Equal(t, float64(10),
		testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("shared_field")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FallbackActive))
}
