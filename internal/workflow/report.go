package workflow

import (
	"time"

	"dailybrief/internal/activity"
)

// Run statuses, used both in the report and as the metrics label.
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusFailure = "failure"
)

// RunReport is the accounting one digest run returns alongside its
// payload. Everything in it derives from activity results; the run
// timestamps are the first and last activity stamps, so two replays of
// the same inputs differ only in timing.
type RunReport struct {
	RunID  string `json:"run_id"`
	UserID string `json:"user_id"`
	Status string `json:"status"`

	// Batches lists every executed activity in order.
	Batches []activity.BatchResult `json:"batches"`

	ArticlesFetched   int `json:"articles_fetched"`
	ArticlesValidated int `json:"articles_validated"`
	GroupsAssembled   int `json:"groups_assembled"`
	SourceFailures    int `json:"source_failures"`
	AIFailures        int `json:"ai_failures"`

	// Degraded lists activities that exhausted their retries; the run
	// continued on their partial results.
	Degraded []string `json:"degraded,omitempty"`
}

func (r *RunReport) record(b activity.BatchResult) {
	r.Batches = append(r.Batches, b)
}

// StartedAt is the start stamp of the first executed activity.
func (r RunReport) StartedAt() time.Time {
	if len(r.Batches) == 0 {
		return time.Time{}
	}
	return r.Batches[0].StartedAt
}

// FinishedAt is the finish stamp of the last executed activity.
func (r RunReport) FinishedAt() time.Time {
	if len(r.Batches) == 0 {
		return time.Time{}
	}
	return r.Batches[len(r.Batches)-1].FinishedAt
}

// Duration is the wall-clock span of the run as its activities
// reported it.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt().Sub(r.StartedAt())
}

// CacheHits sums memoized reuses across all activities.
func (r RunReport) CacheHits() int {
	n := 0
	for _, b := range r.Batches {
		n += b.CacheHits
	}
	return n
}

// AICalls sums uncached computations across all activities. A replay
// against a warm cache reports zero.
func (r RunReport) AICalls() int {
	n := 0
	for _, b := range r.Batches {
		n += b.AICalls
	}
	return n
}

// ErrorCount sums per-article and per-source errors across all
// activities.
func (r RunReport) ErrorCount() int {
	n := 0
	for _, b := range r.Batches {
		n += b.ErrorsCount
	}
	return n
}

// aiActivities marks the batches whose per-article errors represent AI
// degradation rather than transport failures.
var aiActivities = map[string]struct{}{
	activity.ActivityValidate:   {},
	activity.ActivityQuality:    {},
	activity.ActivityTopics:     {},
	activity.ActivityRelevance:  {},
	activity.ActivitySummarize:  {},
	activity.ActivitySimilarity: {},
}

func (r RunReport) aiFailures() int {
	n := 0
	for _, b := range r.Batches {
		if _, ok := aiActivities[b.Activity]; ok {
			n += b.ErrorsCount
		}
	}
	return n
}
