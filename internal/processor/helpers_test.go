package processor

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"dailybrief/internal/config"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/ai"
)

/* ───────── Shared Test Doubles ───────── */

// stubProvider answers every structured call with canned JSON, or with
// err when set. Recorded requests let tests assert on prompts. The
// optional run hook overrides the canned pair per call.
type stubProvider struct {
	mu       sync.Mutex
	calls    []ai.Request
	response string
	err      error
	run      func(req ai.Request) (string, error)
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) RunStructured(_ context.Context, req ai.Request, out any) error {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	response, err := s.response, s.err
	if s.run != nil {
		response, err = s.run(req)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(response), out)
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubProvider) lastCall() ai.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

// stubError is what a provider surfaces after exhausting its own
// retries; processors must degrade, not crash.
func stubError(operation string) error {
	return &ai.Error{Provider: "stub", Operation: operation, Message: "model overloaded", Retryable: true}
}

/* ───────── Shared Fixtures ───────── */

func testContentConfig() config.ContentConfig {
	return config.ContentConfig{
		MinLength:             100,
		MaxLength:             50000,
		TitleMax:              500,
		AuthorMax:             100,
		TagMax:                50,
		MaxTags:               20,
		SpamDetectionEnabled:  true,
		QualityScoringEnabled: true,
	}
}

func testTimeouts() config.TimeoutConfig {
	return config.TimeoutConfig{
		Spam:       time.Second,
		Quality:    time.Second,
		Topics:     time.Second,
		Relevance:  time.Second,
		Summary:    time.Second,
		Similarity: time.Second,
	}
}

// filler produces readable padding of at least n runes so length-gated
// paths trigger without drowning tests in literals.
func filler(n int) string {
	const sentence = "The collector walks the heap concurrently while mutators keep allocating into fresh spans. "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(sentence)
	}
	return b.String()
}

func testArticle() entity.Article {
	return entity.Article{
		URL:         "https://blog.example.com/posts/gc-pacing",
		Title:       "Pacing the Garbage Collector",
		Content:     filler(600),
		Author:      "Jane Doe",
		Tags:        []string{"go", "runtime"},
		PublishedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		FetchedAt:   time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}
