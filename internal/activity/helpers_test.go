package activity

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"dailybrief/internal/config"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/ai"
	"dailybrief/internal/infra/cache"
)

/* ───────── AI provider stub ───────── */

// stubProvider drives every AI-backed processor from tests. The fixed
// response/err pair answers each call unless run is set, which decides
// per request.
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

func (s *stubProvider) requests() []ai.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ai.Request(nil), s.calls...)
}

func stubError(operation string) *ai.Error {
	return &ai.Error{
		Provider:  "stub",
		Operation: operation,
		Message:   "model overloaded",
		Retryable: true,
	}
}

/* ───────── dependency stubs ───────── */

type stubConfigStore struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, userID string) (entity.UserConfig, error)
}

func (s *stubConfigStore) GetUserConfig(ctx context.Context, userID string) (entity.UserConfig, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.fn(ctx, userID)
}

func (s *stubConfigStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubFetcher struct {
	mu      sync.Mutex
	fetched []string
	fn      func(ctx context.Context, source entity.SourceRef) entity.FetchResult
}

func (s *stubFetcher) Fetch(ctx context.Context, source entity.SourceRef) entity.FetchResult {
	s.mu.Lock()
	s.fetched = append(s.fetched, source.FeedURL)
	s.mu.Unlock()
	return s.fn(ctx, source)
}

/* ───────── fixtures ───────── */

// testPipelineConfig returns the defaults with semantic relevance off,
// so relevance tests stay deterministic unless a test opts back in.
func testPipelineConfig() config.PipelineConfig {
	cfg := config.DefaultPipelineConfig()
	cfg.Personalization.EnableSemanticScoring = false
	return cfg
}

func newTestActivities(t *testing.T, cfg config.PipelineConfig, provider ai.Provider) *Activities {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	memo := cache.NewMemo(cache.NewMemoryStore(cache.DefaultMemoryStoreConfig()), logger)
	return New(cfg, provider, memo, nil, nil, logger)
}

// filler repeats a fixed sentence until the result is at least n bytes.
func filler(n int) string {
	const sentence = "The collector paces itself against the live heap so allocation stalls stay rare and short. "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(sentence)
	}
	return b.String()
}

func testArticle(url string) entity.Article {
	published := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return entity.Article{
		URL:         url,
		Title:       "Story at " + url,
		Content:     filler(600),
		Author:      "Jane Doe",
		Tags:        []string{"go", "runtime"},
		PublishedAt: published,
		FetchedAt:   published.Add(2 * time.Hour),
	}
}

func testArticles(urls ...string) []entity.Article {
	out := make([]entity.Article, 0, len(urls))
	for _, u := range urls {
		out = append(out, testArticle(u))
	}
	return out
}

func testProfile(keywords ...string) entity.InterestProfile {
	return entity.InterestProfile{
		Keywords:    keywords,
		Threshold:   40,
		BoostFactor: 1.0,
		Style:       entity.StyleBrief,
	}
}
