// Package circuitbreaker guards the pipeline's external dependencies
// with sony/gobreaker. Each remote surface (AI provider, feed origins,
// article pages, the subscription database) gets its own breaker, so a
// dead dependency fails fast with gobreaker.ErrOpenState instead of
// holding digest runs in timeouts.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config tunes one breaker.
type Config struct {
	// Name tags state-change logs.
	Name string

	// MaxRequests caps in-flight probes while half-open.
	MaxRequests uint32

	// Interval is how often the closed-state counters reset.
	Interval time.Duration

	// Timeout is the open-state cooldown before probing again.
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the circuit,
	// evaluated only after MinRequests calls in the current interval.
	FailureThreshold float64
	MinRequests      uint32
}

func (c Config) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureThreshold
}

// CircuitBreaker is a named gobreaker instance.
type CircuitBreaker struct {
	name    string
	breaker *gobreaker.CircuitBreaker
}

// New builds a breaker from cfg. Transitions are logged at WARN so a
// degraded digest can be correlated with the circuit that tripped.
func New(cfg Config) *CircuitBreaker {
	return &CircuitBreaker{
		name: cfg.Name,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: cfg.readyToTrip,
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state changed",
					slog.String("circuit", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		}),
	}
}

// Execute runs fn through the breaker. While the circuit is open it
// returns gobreaker.ErrOpenState without calling fn.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// State reports the current gobreaker state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// IsOpen reports whether calls are currently rejected.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// aiProviderDefaults is shared by both provider presets. Operators
// overlay their own knobs through the AI config loader before New.
func aiProviderDefaults(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          time.Minute,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// ClaudeAPIConfig is the default Anthropic provider breaker.
func ClaudeAPIConfig() Config { return aiProviderDefaults("claude-api") }

// OpenAIAPIConfig is the default OpenAI provider breaker.
func OpenAIAPIConfig() Config { return aiProviderDefaults("openai-api") }

// FeedFetchConfig covers RSS and Atom fetches. A digest run hits many
// independent origins through one shared breaker, so it trips only on
// a sustained failure rate across at least ten calls.
func FeedFetchConfig() Config {
	return Config{
		Name:             "feed-fetch",
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          2 * time.Minute,
		FailureThreshold: 0.7,
		MinRequests:      10,
	}
}

// ContentScrapeConfig covers full-article content enhancement. More
// conservative than feed fetching because target sites change
// structure and throttle scrapers.
func ContentScrapeConfig() Config {
	return Config{
		Name:             "content-scrape",
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          5 * time.Minute,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}
