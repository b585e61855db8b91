package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// Registry is the part of reminder.Registry the scheduler drives.
type Registry interface {
	TakeDue(ctx context.Context, now time.Time) ([]domain.Reminder, error)
	Save(ctx context.Context) error
	Len() int
}

const (
	defaultInterval = time.Second
	defaultBackoff  = 5 * time.Second
	finalSaveWait   = 5 * time.Second
)

// Scheduler polls the registry and dispatches due reminders.
type Scheduler struct {
	reg      Registry
	disp     *Dispatcher
	log      *zap.Logger
	interval time.Duration
	backoff  time.Duration
	now      func() time.Time
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the sleep between successful ticks.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithBackoff sets the sleep after a failed tick.
func WithBackoff(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler polling every second with a five second error backoff.
func New(reg Registry, disp *Dispatcher, log *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		reg:      reg,
		disp:     disp,
		log:      log,
		interval: defaultInterval,
		backoff:  defaultBackoff,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run starts the loop until ctx is canceled, then saves the registry once more.
// Tick failures, panics included, are logged and followed by the backoff sleep.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-timer.C:
		}

		wait := s.interval
		if err := s.Tick(ctx); err != nil {
			tickErrors.Inc()
			s.log.Error("scheduler tick failed", zap.Error(err), zap.Duration("backoff", s.backoff))
			wait = s.backoff
		}
		timer.Reset(wait)
	}
}

// Tick performs one cycle: claim due reminders, dispatch each one, report the outcome.
// Claimed reminders are delivered even if ctx is canceled midway.
func (s *Scheduler) Tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	due, err := s.reg.TakeDue(ctx, s.now())
	if err != nil {
		return fmt.Errorf("take due: %w", err)
	}

	sendCtx := context.WithoutCancel(ctx)
	for _, rem := range due {
		outcome := s.deliver(sendCtx, rem)
		deliveries.WithLabelValues(outcome.String()).Inc()
	}
	pending.Set(float64(s.reg.Len()))
	return nil
}

// deliver isolates one reminder so a panicking sender cannot starve the rest of the tick.
func (s *Scheduler) deliver(ctx context.Context, rem domain.Reminder) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("delivery panicked", zap.Any("panic", r), zap.Int64("owner", rem.Owner))
			outcome = OutcomeTransientFailure
		}
	}()
	return s.disp.Deliver(ctx, rem)
}

func (s *Scheduler) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), finalSaveWait)
	defer cancel()
	if err := s.reg.Save(ctx); err != nil {
		s.log.Error("final save failed", zap.Error(err))
	}
	s.log.Info("scheduler stopping")
}
