package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"dailybrief/internal/observability/metrics"
)

// envelopeVersion identifies the on-the-wire shape of cached entries.
// Bump it when the envelope or any cached payload type changes shape;
// entries carrying an older version are dropped as corrupt.
const envelopeVersion = 1

// envelope wraps every cached payload with the metadata needed to
// recognize stale formats.
type envelope struct {
	Version    int             `json:"v"`
	ComputedAt time.Time       `json:"computed_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Memo memoizes computed results in a Store using JSON envelopes.
//
// Cache failures never propagate: a backend error is reported as a
// miss, a corrupt entry is deleted and reported as a miss, and a failed
// write is logged and dropped. Callers recompute on a miss, so the
// pipeline keeps producing a digest when the cache is unavailable.
type Memo struct {
	store  Store
	clock  Clock
	logger *slog.Logger
}

// NewMemo wraps store with envelope encoding and miss-on-error
// semantics.
func NewMemo(store Store, logger *slog.Logger) *Memo {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memo{
		store:  store,
		clock:  &SystemClock{},
		logger: logger,
	}
}

// Lookup reads key and unmarshals the cached payload into out. It
// returns true only on a usable hit. A corrupt entry (undecodable
// envelope, version mismatch or undecodable payload) is deleted so the
// next run recomputes it cleanly.
func (m *Memo) Lookup(ctx context.Context, key string, out any) bool {
	data, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			metrics.RecordCacheGet("miss")
			return false
		}
		m.logger.Warn("Cache read failed, treating as miss",
			slog.String("key", key),
			slog.String("error", err.Error()))
		metrics.RecordCacheGet("error")
		return false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.dropCorrupt(ctx, key, "undecodable envelope")
		return false
	}
	if env.Version != envelopeVersion {
		m.dropCorrupt(ctx, key, "version mismatch")
		return false
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		m.dropCorrupt(ctx, key, "undecodable payload")
		return false
	}

	metrics.RecordCacheGet("hit")
	return true
}

// Store writes payload under key with the given ttl. Failures are
// logged and recorded but never returned; a lost write only costs a
// recomputation on the next run.
func (m *Memo) Store(ctx context.Context, key string, payload any, ttl time.Duration) {
	raw, err := json.Marshal(payload)
	if err != nil {
		m.logger.Warn("Cache write skipped, payload not serializable",
			slog.String("key", key),
			slog.String("error", err.Error()))
		metrics.RecordCacheSet(err)
		return
	}

	env := envelope{
		Version:    envelopeVersion,
		ComputedAt: m.clock.Now().UTC(),
		Payload:    raw,
	}
	data, err := json.Marshal(env)
	if err != nil {
		m.logger.Warn("Cache write skipped, envelope not serializable",
			slog.String("key", key),
			slog.String("error", err.Error()))
		metrics.RecordCacheSet(err)
		return
	}

	err = m.store.Set(ctx, key, data, ttl)
	metrics.RecordCacheSet(err)
	if err != nil {
		m.logger.Warn("Cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

// dropCorrupt deletes an unreadable entry and accounts for it.
func (m *Memo) dropCorrupt(ctx context.Context, key, reason string) {
	m.logger.Warn("Corrupt cache entry dropped",
		slog.String("key", key),
		slog.String("reason", reason))
	err := m.store.Delete(ctx, key)
	metrics.RecordCacheDelete(err)
	if err != nil {
		m.logger.Warn("Corrupt cache entry could not be deleted",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	metrics.RecordCacheGet("corrupt")
}
