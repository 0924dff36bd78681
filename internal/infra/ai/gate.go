package ai

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/time/rate"

	"dailybrief/internal/config"
)

// ErrBudgetExhausted is returned once a run has spent its AI call
// budget. Callers stop issuing calls and degrade to fallbacks for the
// rest of the batch.
var ErrBudgetExhausted = errors.New("per-run ai call budget exhausted")

// Gate paces calls across all providers sharing it. A token bucket
// smooths the request rate and an absolute per-run budget caps spend;
// the workflow resets the budget at the start of each run.
type Gate struct {
	limiter *rate.Limiter
	max     int64
	used    atomic.Int64
}

// NewGate builds a gate from the configured rate limits. A non-positive
// RequestsPerSecond disables pacing; a non-positive MaxCallsPerRun
// disables the budget.
func NewGate(cfg config.RateLimitConfig) *Gate {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Gate{
		limiter: rate.NewLimiter(limit, burst),
		max:     int64(cfg.MaxCallsPerRun),
	}
}

// Acquire charges one call against the run budget, then blocks until
// the rate limiter grants a slot. It returns ErrBudgetExhausted when
// the budget is spent, or the context error if ctx ends while waiting;
// either way the charge is refunded because no call was made.
func (g *Gate) Acquire(ctx context.Context) error {
	if g.used.Add(1) > g.max && g.max > 0 {
		g.used.Add(-1)
		return ErrBudgetExhausted
	}

	if err := g.limiter.Wait(ctx); err != nil {
		g.used.Add(-1)
		return err
	}
	return nil
}

// Reset clears the spent budget for a new run. The rate limiter keeps
// its token state so pacing stays continuous across runs.
func (g *Gate) Reset() {
	g.used.Store(0)
}

// Used returns the number of calls charged in the current run.
func (g *Gate) Used() int64 {
	return g.used.Load()
}
