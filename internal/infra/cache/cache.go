// Package cache provides the memoization store behind the digest
// pipeline. Every AI-derived result is written under a content-addressed
// key so that re-running a digest against a warm cache replays the
// previous decisions instead of repeating provider calls.
//
// Two backends implement Store: an in-memory store with LRU eviction
// for single-process deployments and tests, and a Redis store for
// deployments where cache state must survive restarts. The Memo type
// wraps a Store with the versioned JSON envelope used by all entries.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss reports that a key is not present in the store. Backends
// return it for both never-written and expired keys.
var ErrMiss = errors.New("cache miss")

// Store is the byte-level cache backend.
type Store interface {
	// Get returns the value stored under key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A non-positive ttl stores the entry
	// without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clock provides time operations for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
