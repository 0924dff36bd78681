package delivery

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"dailybrief/internal/domain/entity"
	"dailybrief/internal/observability/metrics"
	"dailybrief/internal/pkg/runid"
)

const (
	// breakerThreshold is the consecutive-failure count that disables a
	// sender for breakerCooldown.
	breakerThreshold   = 5
	breakerCooldown    = 5 * time.Minute
	poolAcquireTimeout = 5 * time.Second
)

// DispatcherConfig tunes the fan-out behavior.
type DispatcherConfig struct {
	// MaxConcurrent bounds in-flight deliveries across all senders.
	MaxConcurrent int

	// SendEmpty forwards digests with zero groups instead of
	// suppressing them.
	SendEmpty bool

	// SendTimeout bounds one sender invocation end to end, retries
	// included.
	SendTimeout time.Duration
}

// SenderStatus is a point-in-time health view of one sender.
type SenderStatus struct {
	Name          string
	Enabled       bool
	CoolingDown   bool
	DisabledUntil *time.Time
}

// senderHealth tracks the failure streak that drives the cooldown.
type senderHealth struct {
	consecutiveFailures int
	disabledUntil       time.Time
	mu                  sync.Mutex
}

// Dispatcher fans a digest out to every enabled sender without blocking
// the pipeline. Deliveries run on a bounded worker pool; a sender that
// fails repeatedly is cooled down so scheduled batches keep moving.
type Dispatcher struct {
	senders        []Sender
	config         DispatcherConfig
	pool           chan struct{}
	health         map[string]*senderHealth
	healthMu       sync.RWMutex
	wg             sync.WaitGroup
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewDispatcher builds a dispatcher over the given senders. Zero config
// fields fall back to 8 concurrent deliveries and a 30 second send
// timeout.
func NewDispatcher(senders []Sender, config DispatcherConfig) *Dispatcher {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 8
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 30 * time.Second
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		senders:        senders,
		config:         config,
		pool:           make(chan struct{}, config.MaxConcurrent),
		health:         make(map[string]*senderHealth),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}
	for _, s := range senders {
		d.health[s.Name()] = &senderHealth{}
	}
	return d
}

// Dispatch hands the payload to every enabled sender and returns
// immediately. An empty digest is suppressed unless SendEmpty is set;
// suppression is the only outcome the caller can observe, everything
// else lands in logs and metrics.
func (d *Dispatcher) Dispatch(ctx context.Context, payload entity.DigestPayload) error {
	deliveryID := runid.FromContext(ctx)
	if deliveryID == "" {
		deliveryID = uuid.New().String()
	}

	if payload.Empty() && !d.config.SendEmpty {
		slog.Info("suppressing empty digest",
			slog.String("delivery_id", deliveryID),
			slog.String("user_id", payload.UserID))
		metrics.RecordDigestDelivered("suppressed", 0)
		return nil
	}

	enabled := make([]Sender, 0, len(d.senders))
	for _, s := range d.senders {
		if s.Enabled() {
			enabled = append(enabled, s)
		}
	}
	if len(enabled) == 0 {
		slog.Debug("no delivery senders enabled",
			slog.String("delivery_id", deliveryID),
			slog.String("user_id", payload.UserID))
		metrics.RecordDigestDelivered("suppressed", 0)
		return nil
	}

	slog.Info("dispatching digest",
		slog.String("delivery_id", deliveryID),
		slog.String("user_id", payload.UserID),
		slog.Int("groups", payload.Metadata.TotalGroups),
		slog.Int("senders", len(enabled)))

	for _, s := range enabled {
		sender := s
		d.wg.Add(1)
		go d.deliver(deliveryID, sender, payload)
	}
	return nil
}

// deliver runs one sender on the worker pool.
func (d *Dispatcher) deliver(deliveryID string, sender Sender, payload entity.DigestPayload) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in delivery sender",
				slog.String("delivery_id", deliveryID),
				slog.String("sender", sender.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			metrics.RecordDigestDelivered("failure", 0)
		}
	}()

	select {
	case d.pool <- struct{}{}:
		defer func() { <-d.pool }()
	case <-time.After(poolAcquireTimeout):
		slog.Warn("delivery dropped, worker pool full",
			slog.String("delivery_id", deliveryID),
			slog.String("sender", sender.Name()))
		metrics.RecordDigestDelivered("failure", 0)
		return
	}

	health := d.senderHealth(sender.Name())
	health.mu.Lock()
	if time.Now().Before(health.disabledUntil) {
		until := health.disabledUntil
		health.mu.Unlock()
		slog.Warn("sender cooling down, delivery dropped",
			slog.String("delivery_id", deliveryID),
			slog.String("sender", sender.Name()),
			slog.Time("disabled_until", until))
		metrics.RecordDigestDelivered("failure", 0)
		return
	}
	health.mu.Unlock()

	ctx, cancel := context.WithTimeout(d.shutdownCtx, d.config.SendTimeout)
	defer cancel()

	start := time.Now()
	err := sender.Send(ctx, payload)
	duration := time.Since(start)

	health.mu.Lock()
	if err != nil {
		health.consecutiveFailures++
		if health.consecutiveFailures >= breakerThreshold {
			health.disabledUntil = time.Now().Add(breakerCooldown)
			slog.Error("sender disabled after repeated failures",
				slog.String("delivery_id", deliveryID),
				slog.String("sender", sender.Name()),
				slog.Int("consecutive_failures", health.consecutiveFailures))
		}
	} else {
		health.consecutiveFailures = 0
	}
	health.mu.Unlock()

	if err != nil {
		metrics.RecordDigestDelivered("failure", duration)
		slog.Warn("digest delivery failed",
			slog.String("delivery_id", deliveryID),
			slog.String("sender", sender.Name()),
			slog.String("user_id", payload.UserID),
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
		return
	}
	metrics.RecordDigestDelivered("sent", duration)
	slog.Info("digest delivered",
		slog.String("delivery_id", deliveryID),
		slog.String("sender", sender.Name()),
		slog.String("user_id", payload.UserID),
		slog.Duration("send_duration", duration))
}

func (d *Dispatcher) senderHealth(name string) *senderHealth {
	d.healthMu.RLock()
	defer d.healthMu.RUnlock()
	return d.health[name]
}

// Health reports per-sender status for logging and readiness output.
func (d *Dispatcher) Health() []SenderStatus {
	d.healthMu.RLock()
	defer d.healthMu.RUnlock()

	statuses := make([]SenderStatus, 0, len(d.senders))
	for _, s := range d.senders {
		health := d.health[s.Name()]
		health.mu.Lock()
		var disabledUntil *time.Time
		coolingDown := false
		if time.Now().Before(health.disabledUntil) {
			coolingDown = true
			until := health.disabledUntil
			disabledUntil = &until
		}
		health.mu.Unlock()

		statuses = append(statuses, SenderStatus{
			Name:          s.Name(),
			Enabled:       s.Enabled(),
			CoolingDown:   coolingDown,
			DisabledUntil: disabledUntil,
		})
	}
	return statuses
}

// Shutdown stops accepting work and waits for in-flight deliveries to
// finish or the context to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	slog.Info("shutting down delivery dispatcher")
	d.shutdownCancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("delivery dispatcher shutdown complete")
		return nil
	case <-ctx.Done():
		slog.Warn("delivery dispatcher shutdown timeout")
		return ctx.Err()
	}
}
