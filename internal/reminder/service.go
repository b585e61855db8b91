// Package reminder keeps pending reminders and timezone preferences and exposes
// the operations the chat front end calls.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// Service is the front end's entry point for reminder operations.
type Service struct {
	reminders *Registry
	timezones *Timezones
	parser    domain.Parser
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a registry and timezone book behind one API.
func NewService(reminders *Registry, timezones *Timezones, parser domain.Parser, opts ...Option) *Service {
	s := &Service{
		reminders: reminders,
		timezones: timezones,
		parser:    parser,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now is the service clock, exposed so callers render relative times consistently.
func (s *Service) Now() time.Time { return s.now() }

// AddReminder parses expr in tz (the owner's preference when tz is empty) and
// stores a reminder for the resulting instant.
func (s *Service) AddReminder(ctx context.Context, owner int64, text, expr, tz string) (domain.Reminder, error) {
	text, err := domain.NormalizeText(text)
	if err != nil {
		return domain.Reminder{}, err
	}
	if tz == "" {
		tz = s.timezones.Get(owner)
	}
	tz, err = domain.ValidateTZ(tz)
	if err != nil {
		return domain.Reminder{}, err
	}

	now := s.now()
	at, err := s.parser.Parse(expr, tz, now)
	if err != nil {
		return domain.Reminder{}, err
	}
	at = domain.TruncateInstant(at)
	if !at.After(now) {
		return domain.Reminder{}, fmt.Errorf("%w: %s", domain.ErrPastTime, domain.FormatLocal(at, tz))
	}

	return s.reminders.Add(ctx, domain.Reminder{At: at, Owner: owner, Text: text, Timezone: tz})
}

// CancelReminder removes the owner's reminder at the given instant and returns its text.
func (s *Service) CancelReminder(ctx context.Context, owner int64, at time.Time) (string, error) {
	return s.reminders.Cancel(ctx, owner, at)
}

// ListReminders returns the owner's pending reminders, earliest first.
func (s *Service) ListReminders(owner int64) []domain.Reminder {
	return s.reminders.List(owner)
}

// NextReminder returns the owner's earliest pending reminder.
func (s *Service) NextReminder(owner int64) (domain.Reminder, bool) {
	return s.reminders.Next(owner)
}

// ClearReminders removes all of the owner's reminders and reports how many were removed.
func (s *Service) ClearReminders(ctx context.Context, owner int64) (int, error) {
	return s.reminders.Clear(ctx, owner)
}

// SetTimezone stores the owner's preferred timezone and returns its canonical name.
func (s *Service) SetTimezone(ctx context.Context, owner int64, tz string) (string, error) {
	return s.timezones.Set(ctx, owner, tz)
}

// GetTimezone returns the owner's timezone or the configured default.
func (s *Service) GetTimezone(owner int64) string {
	return s.timezones.Get(owner)
}
