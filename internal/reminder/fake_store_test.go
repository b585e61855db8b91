package reminder

import (
	"context"
	"sync"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// memStore is an in-memory store.Repo whose saves can be made to fail.
type memStore struct {
	mu        sync.Mutex
	reminders []domain.Reminder
	tzs       map[int64]string
	saves     int
	failSave  error
	loadErr   error
}

func (m *memStore) LoadReminders(context.Context) ([]domain.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]domain.Reminder(nil), m.reminders...), nil
}

func (m *memStore) SaveReminders(_ context.Context, rs []domain.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.saves++
	m.reminders = append([]domain.Reminder(nil), rs...)
	return nil
}

func (m *memStore) LoadTimezones(context.Context) (map[int64]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[int64]string, len(m.tzs))
	for k, v := range m.tzs {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) SaveTimezones(_ context.Context, tzs map[int64]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.saves++
	m.tzs = tzs
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) stored() []domain.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Reminder(nil), m.reminders...)
}

func (m *memStore) setFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSave = err
}
