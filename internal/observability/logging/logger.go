package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"dailybrief/internal/pkg/runid"
)

// NewLogger builds the structured logger the daemons install as the
// slog default. Output is JSON on stdout; LOG_FORMAT=text switches to
// the text handler for local runs. Debug-level runs also record source
// locations.
func NewLogger() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRunID stamps the digest run ID from ctx onto logger so every
// line of one user's run shares a run_id field. The logger comes back
// unchanged when ctx carries no run.
func WithRunID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := runid.FromContext(ctx); id != "" {
		return logger.With("run_id", id)
	}
	return logger
}
