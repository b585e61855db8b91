package store

import (
	"context"
	"errors"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// ErrCorrupt is returned by loaders when persisted state cannot be decoded.
var ErrCorrupt = errors.New("corrupt store")

// ReminderStore persists the full set of pending reminders. Save replaces
// whatever was stored before.
type ReminderStore interface {
	LoadReminders(ctx context.Context) ([]domain.Reminder, error)
	SaveReminders(ctx context.Context, reminders []domain.Reminder) error
}

// TimezoneStore persists per-owner timezone preferences as a whole.
type TimezoneStore interface {
	LoadTimezones(ctx context.Context) (map[int64]string, error)
	SaveTimezones(ctx context.Context, tzs map[int64]string) error
}

// Repo is a backend holding both kinds of state.
type Repo interface {
	ReminderStore
	TimezoneStore
	Close() error
}
