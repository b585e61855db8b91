package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ykvlv/remind-bot/internal/domain"
	"github.com/ykvlv/remind-bot/internal/reminder"
	"github.com/ykvlv/remind-bot/internal/store"
)

var t0 = time.Date(2030, time.January, 1, 9, 0, 0, 0, time.UTC)

type sentMsg struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu     sync.Mutex
	calls  []sentMsg
	errFor map[int64]error
	panics map[int64]bool
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	f.calls = append(f.calls, sentMsg{chatID, text})
	err := f.errFor[chatID]
	boom := f.panics[chatID]
	f.mu.Unlock()
	if boom {
		panic("sender exploded")
	}
	return err
}

func (f *fakeSender) messages() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMsg(nil), f.calls...)
}

func newRegistry(t *testing.T, rems ...domain.Reminder) *reminder.Registry {
	t.Helper()
	dir := t.TempDir()
	st, err := store.OpenJSON(filepath.Join(dir, "reminders.json"), filepath.Join(dir, "timezones.json"))
	require.NoError(t, err)
	reg := reminder.NewRegistry(st, 100, zaptest.NewLogger(t))
	for _, r := range rems {
		_, err := reg.Add(context.Background(), r)
		require.NoError(t, err)
	}
	return reg
}

func at(owner int64, when time.Time, text string) domain.Reminder {
	return domain.Reminder{At: when, Owner: owner, Text: text, Timezone: "UTC"}
}

func newTestScheduler(t *testing.T, reg Registry, sender Sender, now time.Time) (*Scheduler, *Dispatcher) {
	t.Helper()
	log := zaptest.NewLogger(t)
	disp := NewDispatcher(sender, log)
	return New(reg, disp, log, WithClock(func() time.Time { return now })), disp
}

func TestTick_DeliversDueOnce(t *testing.T) {
	reg := newRegistry(t,
		at(1, t0.Add(-time.Minute), "first"),
		at(2, t0, "second"),
		at(1, t0.Add(time.Hour), "not yet"),
	)
	sender := &fakeSender{}
	s, _ := newTestScheduler(t, reg, sender, t0)

	require.NoError(t, s.Tick(context.Background()))
	require.NoError(t, s.Tick(context.Background()))

	assert.Equal(t, []sentMsg{{1, "Reminder: first"}, {2, "Reminder: second"}}, sender.messages())
	assert.Equal(t, 1, reg.Len())
	assert.Len(t, reg.List(1), 1)
}

func TestTick_TransientFailuresAreDroppedWithoutSuppression(t *testing.T) {
	reg := newRegistry(t, at(5, t0.Add(-time.Second), "a"), at(5, t0, "b"))
	sender := &fakeSender{errFor: map[int64]error{5: errors.New("connection reset")}}
	s, disp := newTestScheduler(t, reg, sender, t0)

	before := testutil.ToFloat64(deliveries.WithLabelValues("transient_failure"))
	require.NoError(t, s.Tick(context.Background()))

	assert.Len(t, sender.messages(), 2)
	assert.Zero(t, reg.Len())
	assert.False(t, disp.Suppressed(5))
	assert.Equal(t, before+2, testutil.ToFloat64(deliveries.WithLabelValues("transient_failure")))

	require.NoError(t, s.Tick(context.Background()))
	assert.Len(t, sender.messages(), 2, "no retry")
}

func TestTick_PermanentFailureSuppressesOwner(t *testing.T) {
	reg := newRegistry(t,
		at(9, t0.Add(-2*time.Second), "one"),
		at(9, t0.Add(-time.Second), "two"),
		at(3, t0, "unrelated"),
	)
	sender := &fakeSender{errFor: map[int64]error{
		9: fmt.Errorf("forbidden: bot was blocked by the user: %w", domain.ErrRecipientUnreachable),
	}}
	now := t0
	log := zaptest.NewLogger(t)
	disp := NewDispatcher(sender, log)
	s := New(reg, disp, log, WithClock(func() time.Time { return now }))

	suppressedBefore := testutil.ToFloat64(deliveries.WithLabelValues("suppressed"))
	require.NoError(t, s.Tick(context.Background()))

	assert.Equal(t, []sentMsg{{9, "Reminder: one"}, {3, "Reminder: unrelated"}}, sender.messages())
	assert.True(t, disp.Suppressed(9))
	assert.Zero(t, reg.Len())
	assert.Equal(t, suppressedBefore+1, testutil.ToFloat64(deliveries.WithLabelValues("suppressed")))

	// Later reminders for the same owner are removed without an attempt.
	_, err := reg.Add(context.Background(), at(9, t0.Add(time.Minute), "three"))
	require.NoError(t, err)
	now = t0.Add(time.Minute)
	require.NoError(t, s.Tick(context.Background()))
	assert.Len(t, sender.messages(), 2)
	assert.Zero(t, reg.Len())
}

func TestTick_PanickingSenderDoesNotBlockOthers(t *testing.T) {
	reg := newRegistry(t, at(1, t0.Add(-time.Second), "boom"), at(2, t0, "fine"))
	sender := &fakeSender{panics: map[int64]bool{1: true}}
	s, disp := newTestScheduler(t, reg, sender, t0)

	require.NoError(t, s.Tick(context.Background()))
	assert.Len(t, sender.messages(), 2)
	assert.Zero(t, reg.Len())
	assert.False(t, disp.Suppressed(1))
}

func TestTick_CanceledContextStillDeliversClaimed(t *testing.T) {
	reg := newRegistry(t, at(1, t0, "late"))
	sender := &fakeSender{}
	s, _ := newTestScheduler(t, reg, sender, t0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Tick(ctx))
	assert.Len(t, sender.messages(), 1)
}

// flakyRegistry fails or panics on chosen TakeDue calls.
type flakyRegistry struct {
	calls  atomic.Int32
	saves  atomic.Int32
	failOn map[int32]bool
	panics map[int32]bool
}

func (f *flakyRegistry) TakeDue(context.Context, time.Time) ([]domain.Reminder, error) {
	n := f.calls.Add(1)
	if f.panics[n] {
		panic("corrupted state")
	}
	if f.failOn[n] {
		return nil, domain.ErrPersistence
	}
	return nil, nil
}

func (f *flakyRegistry) Save(context.Context) error {
	f.saves.Add(1)
	return nil
}

func (f *flakyRegistry) Len() int { return 0 }

func TestTick_ReturnsErrorsAndRecoversPanics(t *testing.T) {
	reg := &flakyRegistry{failOn: map[int32]bool{1: true}, panics: map[int32]bool{2: true}}
	s, _ := newTestScheduler(t, reg, &fakeSender{}, t0)

	assert.ErrorIs(t, s.Tick(context.Background()), domain.ErrPersistence)
	assert.ErrorContains(t, s.Tick(context.Background()), "panic")
	assert.NoError(t, s.Tick(context.Background()))
}

func TestRun_SurvivesFailuresAndSavesOnShutdown(t *testing.T) {
	reg := &flakyRegistry{failOn: map[int32]bool{1: true}, panics: map[int32]bool{2: true}}
	log := zaptest.NewLogger(t)
	s := New(reg, NewDispatcher(&fakeSender{}, log), log,
		WithInterval(5*time.Millisecond),
		WithBackoff(10*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return reg.calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(1), reg.saves.Load())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "delivered", OutcomeDelivered.String())
	assert.Equal(t, "permanent_failure", OutcomePermanentFailure.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
