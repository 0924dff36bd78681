package delivery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailybrief/internal/domain/entity"
)

/* ───────── stub sender ───────── */

type stubSender struct {
	name    string
	enabled bool
	delay   time.Duration
	panics  bool
	calls   atomic.Int32

	mu  sync.Mutex
	err error
}

func (s *stubSender) Name() string  { return s.name }
func (s *stubSender) Enabled() bool { return s.enabled }

func (s *stubSender) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubSender) Send(_ context.Context, _ entity.DigestPayload) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.calls.Add(1)
	if s.panics {
		panic("sender exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func shutdownWithin(t *testing.T, d *Dispatcher, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))
}

/* ───────── dispatch fan-out ───────── */

func TestDispatcher_FansOutToEnabledSenders(t *testing.T) {
	first := &stubSender{name: "first", enabled: true}
	second := &stubSender{name: "second", enabled: true}
	disabled := &stubSender{name: "disabled", enabled: false}

	d := NewDispatcher([]Sender{first, second, disabled}, DispatcherConfig{})
	require.NoError(t, d.Dispatch(context.Background(), samplePayload()))
	shutdownWithin(t, d, 2*time.Second)

	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(1), second.calls.Load())
	assert.Equal(t, int32(0), disabled.calls.Load())
}

func TestDispatcher_SuppressesEmptyDigest(t *testing.T) {
	sender := &stubSender{name: "webhook", enabled: true}
	d := NewDispatcher([]Sender{sender}, DispatcherConfig{})

	empty := samplePayload()
	empty.Metadata.TotalGroups = 0
	empty.Metadata.TotalArticles = 0

	require.NoError(t, d.Dispatch(context.Background(), empty))
	shutdownWithin(t, d, time.Second)
	assert.Equal(t, int32(0), sender.calls.Load())
}

func TestDispatcher_SendEmptyOverride(t *testing.T) {
	sender := &stubSender{name: "webhook", enabled: true}
	d := NewDispatcher([]Sender{sender}, DispatcherConfig{SendEmpty: true})

	empty := samplePayload()
	empty.Metadata.TotalGroups = 0
	empty.Metadata.TotalArticles = 0

	require.NoError(t, d.Dispatch(context.Background(), empty))
	shutdownWithin(t, d, time.Second)
	assert.Equal(t, int32(1), sender.calls.Load())
}

/* ───────── cooldown ───────── */

func TestDispatcher_CoolsDownFailingSender(t *testing.T) {
	sender := &stubSender{name: "webhook", enabled: true, err: errors.New("endpoint down")}
	d := NewDispatcher([]Sender{sender}, DispatcherConfig{MaxConcurrent: 1})

	for i := 0; i < breakerThreshold; i++ {
		require.NoError(t, d.Dispatch(context.Background(), samplePayload()))
		want := int32(i + 1)
		require.Eventually(t, func() bool { return sender.calls.Load() == want },
			2*time.Second, time.Millisecond)
	}

	require.Eventually(t, func() bool {
		statuses := d.Health()
		return len(statuses) == 1 && statuses[0].CoolingDown
	}, 2*time.Second, time.Millisecond)

	// Further dispatches are dropped without reaching the sender.
	require.NoError(t, d.Dispatch(context.Background(), samplePayload()))
	shutdownWithin(t, d, 2*time.Second)
	assert.Equal(t, int32(breakerThreshold), sender.calls.Load())

	statuses := d.Health()
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].CoolingDown)
	require.NotNil(t, statuses[0].DisabledUntil)
	assert.True(t, statuses[0].DisabledUntil.After(time.Now()))
}

func TestDispatcher_SuccessResetsFailureStreak(t *testing.T) {
	sender := &stubSender{name: "webhook", enabled: true, err: errors.New("flaky")}
	d := NewDispatcher([]Sender{sender}, DispatcherConfig{MaxConcurrent: 1})

	for i := 0; i < breakerThreshold-1; i++ {
		require.NoError(t, d.Dispatch(context.Background(), samplePayload()))
		want := int32(i + 1)
		require.Eventually(t, func() bool { return sender.calls.Load() == want },
			2*time.Second, time.Millisecond)
	}

	sender.setErr(nil)
	require.NoError(t, d.Dispatch(context.Background(), samplePayload()))
	require.Eventually(t, func() bool { return sender.calls.Load() == breakerThreshold },
		2*time.Second, time.Millisecond)

	sender.setErr(errors.New("flaky"))
	require.NoError(t, d.Dispatch(context.Background(), samplePayload()))
	shutdownWithin(t, d, 2*time.Second)

	statuses := d.Health()
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].CoolingDown)
}

/* ───────── shutdown ───────── */

func TestDispatcher_ShutdownWaitsForInflight(t *testing.T) {
	sender := &stubSender{name: "slow", enabled: true, delay: 50 * time.Millisecond}
	d := NewDispatcher([]Sender{sender}, DispatcherConfig{})

	require.NoError(t, d.Dispatch(context.Background(), samplePayload()))
	shutdownWithin(t, d, 2*time.Second)
	assert.Equal(t, int32(1), sender.calls.Load())
}

func TestDispatcher_ShutdownTimeout(t *testing.T) {
	sender := &stubSender{name: "stuck", enabled: true, delay: 500 * time.Millisecond}
	d := NewDispatcher([]Sender{sender}, DispatcherConfig{})

	require.NoError(t, d.Dispatch(context.Background(), samplePayload()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Shutdown(ctx), context.DeadlineExceeded)
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	sender := &stubSender{name: "explosive", enabled: true, panics: true}
	steady := &stubSender{name: "steady", enabled: true}
	d := NewDispatcher([]Sender{sender, steady}, DispatcherConfig{})

	require.NoError(t, d.Dispatch(context.Background(), samplePayload()))
	shutdownWithin(t, d, 2*time.Second)

	assert.Equal(t, int32(1), sender.calls.Load())
	assert.Equal(t, int32(1), steady.calls.Load())
}

/* ───────── health ───────── */

func TestDispatcher_Health(t *testing.T) {
	on := &stubSender{name: "on", enabled: true}
	off := &stubSender{name: "off", enabled: false}
	d := NewDispatcher([]Sender{on, off}, DispatcherConfig{})

	statuses := d.Health()
	require.Len(t, statuses, 2)
	assert.Equal(t, "on", statuses[0].Name)
	assert.True(t, statuses[0].Enabled)
	assert.False(t, statuses[0].CoolingDown)
	assert.Equal(t, "off", statuses[1].Name)
	assert.False(t, statuses[1].Enabled)
}

/* ───────── noop ───────── */

func TestNoopSender(t *testing.T) {
	n := NewNoopSender()
	assert.Equal(t, "noop", n.Name())
	assert.True(t, n.Enabled())
	assert.NoError(t, n.Send(context.Background(), samplePayload()))
}
