// Package runid provides utilities for managing digest run IDs.
// It generates a unique ID per workflow run to enable tracing one user's
// digest across logs, metrics and activity boundaries.
package runid

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// RunIDKey is the context key for storing run IDs.
const RunIDKey contextKey = "run_id"

// New generates a fresh run ID (UUID v4).
func New() string {
	return uuid.New().String()
}

// FromContext retrieves the run ID from the context.
// Returns an empty string if no run ID is found.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}
