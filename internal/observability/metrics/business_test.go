package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordDigestRun(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		duration time.Duration
	}{
		{
			name:     "successful run",
			status:   "success",
			duration: 3 * time.Minute,
		},
		{
			name:     "empty digest run",
			status:   "empty",
			duration: 20 * time.Second,
		},
		{
			name:     "failed run",
			status:   "failure",
			duration: 45 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordDigestRun(tt.status, tt.duration)
			})
		})
	}
}

func TestRecordActivity(t *testing.T) {
	tests := []struct {
		name        string
		activity    string
		duration    time.Duration
		errorsCount int
	}{
		{
			name:        "clean activity",
			activity:    "validate",
			duration:    200 * time.Millisecond,
			errorsCount: 0,
		},
		{
			name:        "activity with per-article errors",
			activity:    "summarize",
			duration:    30 * time.Second,
			errorsCount: 3,
		},
		{
			name:        "zero duration",
			activity:    "assemble",
			duration:    0,
			errorsCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordActivity(tt.activity, tt.duration, tt.errorsCount)
			})
		})
	}
}

func TestRecordDigestAssembled(t *testing.T) {
	tests := []struct {
		name     string
		groups   int
		articles int
		htmlSize int
		textSize int
	}{
		{
			name:     "typical digest",
			groups:   5,
			articles: 12,
			htmlSize: 48000,
			textSize: 9000,
		},
		{
			name:     "empty digest",
			groups:   0,
			articles: 0,
			htmlSize: 1200,
			textSize: 300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordDigestAssembled(tt.groups, tt.articles, tt.htmlSize, tt.textSize)
			})
		})
	}
}

func TestRecordArticlesFetched(t *testing.T) {
	tests := []struct {
		name       string
		sourceName string
		sourceID   int64
		count      int
	}{
		{
			name:       "single article",
			sourceName: "Test Source",
			sourceID:   1,
			count:      1,
		},
		{
			name:       "multiple articles",
			sourceName: "Another Source",
			sourceID:   2,
			count:      10,
		},
		{
			name:       "zero articles",
			sourceName: "Empty Source",
			sourceID:   3,
			count:      0,
		},
		{
			name:       "empty source name",
			sourceName: "",
			sourceID:   4,
			count:      5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordArticlesFetched(tt.sourceName, tt.sourceID, tt.count)
			})
		})
	}
}

func TestRecordArticleSummarized(t *testing.T) {
	tests := []struct {
		name    string
		success bool
	}{
		{
			name:    "success",
			success: true,
		},
		{
			name:    "fallback",
			success: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordArticleSummarized(tt.success)
			})
		})
	}
}

func TestRecordFeedCrawl(t *testing.T) {
	tests := []struct {
		name     string
		sourceID int64
		duration time.Duration
	}{
		{
			name:     "successful crawl",
			sourceID: 1,
			duration: 2 * time.Second,
		},
		{
			name:     "fast crawl",
			sourceID: 2,
			duration: 500 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordFeedCrawl(tt.sourceID, tt.duration)
			})
		})
	}
}

func TestRecordFeedCrawlError(t *testing.T) {
	tests := []struct {
		name      string
		sourceID  int64
		errorType string
	}{
		{
			name:      "fetch failed",
			sourceID:  1,
			errorType: "fetch_failed",
		},
		{
			name:      "parse error",
			sourceID:  2,
			errorType: "parse_error",
		},
		{
			name:      "timeout",
			sourceID:  3,
			errorType: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordFeedCrawlError(tt.sourceID, tt.errorType)
			})
		})
	}
}

func TestRecordArticleValidated(t *testing.T) {
	outcomes := []string{"accepted", "empty", "too_short", "spam"}

	for _, outcome := range outcomes {
		t.Run(outcome, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordArticleValidated(outcome)
			})
		})
	}
}

func TestRecordAICall(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		operation string
		duration  time.Duration
		err       error
	}{
		{
			name:      "successful claude call",
			provider:  "claude",
			operation: "summarize",
			duration:  2 * time.Second,
			err:       nil,
		},
		{
			name:      "failed openai call",
			provider:  "openai",
			operation: "topics",
			duration:  30 * time.Second,
			err:       errors.New("rate limited"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordAICall(tt.provider, tt.operation, tt.duration, tt.err)
			})
		})
	}
}

func TestRecordCacheOperations(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordCacheGet("hit")
		RecordCacheGet("miss")
		RecordCacheGet("corrupt")
		RecordCacheGet("error")
		RecordCacheSet(nil)
		RecordCacheSet(errors.New("connection refused"))
		RecordCacheDelete(nil)
		RecordCacheDelete(errors.New("connection refused"))
	})
}

func TestRecordDigestDelivered(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		duration time.Duration
	}{
		{
			name:     "sent",
			status:   "sent",
			duration: 150 * time.Millisecond,
		},
		{
			name:     "suppressed empty digest",
			status:   "suppressed",
			duration: 2 * time.Millisecond,
		},
		{
			name:     "failure",
			status:   "failure",
			duration: 5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordDigestDelivered(tt.status, tt.duration)
			})
		})
	}
}

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		duration  time.Duration
	}{
		{
			name:      "select query",
			operation: "select_user_config",
			duration:  10 * time.Millisecond,
		},
		{
			name:      "list query",
			operation: "list_due_users",
			duration:  5 * time.Millisecond,
		},
		{
			name:      "slow query",
			operation: "complex_join",
			duration:  500 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordDBQuery(tt.operation, tt.duration)
			})
		})
	}
}

func TestUpdateDBConnectionStats(t *testing.T) {
	tests := []struct {
		name   string
		active int
		idle   int
	}{
		{
			name:   "no connections",
			active: 0,
			idle:   0,
		},
		{
			name:   "some active",
			active: 5,
			idle:   10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				UpdateDBConnectionStats(tt.active, tt.idle)
			})
		})
	}
}

func TestMetricsFunctions_AllCallable(t *testing.T) {
	// Test that all functions can be called in sequence without panic
	assert.NotPanics(t, func() {
		RecordDigestRun("success", 2*time.Minute)
		RecordActivity("fetch", 3*time.Second, 1)
		RecordDigestAssembled(4, 10, 32000, 6000)
		RecordArticlesFetched("Test Source", 1, 10)
		RecordFeedCrawl(1, 2*time.Second)
		RecordFeedCrawlError(1, "test_error")
		RecordArticleValidated("accepted")
		RecordArticleSummarized(true)
		RecordSummarizationDuration(1 * time.Second)
		RecordAICall("claude", "quality", 800*time.Millisecond, nil)
		RecordCacheGet("hit")
		RecordCacheSet(nil)
		RecordCacheDelete(nil)
		RecordDigestDelivered("sent", 100*time.Millisecond)
		RecordContentFetchSuccess(400*time.Millisecond, 2048)
		RecordContentFetchFailed(100 * time.Millisecond)
		RecordContentFetchSkipped()
		RecordDBQuery("select_user_config", 10*time.Millisecond)
		UpdateDBConnectionStats(5, 10)
	})
}
