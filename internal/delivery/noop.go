package delivery

import (
	"context"
	"log/slog"

	"dailybrief/internal/domain/entity"
)

// NoopSender accepts every digest and drops it. It stands in when no
// transport is configured so the worker never carries a nil Sender.
type NoopSender struct{}

func NewNoopSender() *NoopSender { return &NoopSender{} }

func (n *NoopSender) Name() string  { return "noop" }
func (n *NoopSender) Enabled() bool { return true }

// Send logs the drop at debug level and succeeds.
func (n *NoopSender) Send(_ context.Context, payload entity.DigestPayload) error {
	slog.Debug("noop sender dropping digest",
		slog.String("user_id", payload.UserID),
		slog.Int("groups", payload.Metadata.TotalGroups))
	return nil
}
