package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// JSONStore keeps reminders and timezone preferences in two flat JSON files.
// Each save rewrites the whole file through a temp file and rename.
//
//	reminders.json: {"1893488400.0": [42, "Standup", "UTC"]}
//	timezones.json: {"42": "Europe/Berlin"}
type JSONStore struct {
	remindersPath string
	timezonesPath string
}

// OpenJSON prepares the directories for both files. Missing files read as empty.
func OpenJSON(remindersPath, timezonesPath string) (*JSONStore, error) {
	for _, p := range []string{remindersPath, timezonesPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
	}
	return &JSONStore{remindersPath: remindersPath, timezonesPath: timezonesPath}, nil
}

// Close is a no-op; files are not held open between operations.
func (s *JSONStore) Close() error { return nil }

// LoadReminders returns stored reminders ordered by trigger instant.
func (s *JSONStore) LoadReminders(_ context.Context) ([]domain.Reminder, error) {
	var raw map[string]entry
	if err := readJSON(s.remindersPath, &raw); err != nil {
		return nil, err
	}
	res := make([]domain.Reminder, 0, len(raw))
	for k, e := range raw {
		at, err := parseInstantKey(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.remindersPath, err)
		}
		res = append(res, domain.Reminder{At: at, Owner: e.Owner, Text: e.Text, Timezone: e.Timezone})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].At.Before(res[j].At) })
	return res, nil
}

// SaveReminders replaces the reminders file with the given set.
func (s *JSONStore) SaveReminders(_ context.Context, reminders []domain.Reminder) error {
	raw := make(map[string]entry, len(reminders))
	for _, r := range reminders {
		raw[instantKey(r.At)] = entry{Owner: r.Owner, Text: r.Text, Timezone: r.Timezone}
	}
	return writeJSON(s.remindersPath, raw)
}

// LoadTimezones returns the owner → IANA name preferences.
func (s *JSONStore) LoadTimezones(_ context.Context) (map[int64]string, error) {
	var raw map[string]string
	if err := readJSON(s.timezonesPath, &raw); err != nil {
		return nil, err
	}
	res := make(map[int64]string, len(raw))
	for k, tz := range raw {
		owner, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: owner %q", ErrCorrupt, s.timezonesPath, k)
		}
		res[owner] = tz
	}
	return res, nil
}

// SaveTimezones replaces the timezones file.
func (s *JSONStore) SaveTimezones(_ context.Context, tzs map[int64]string) error {
	raw := make(map[string]string, len(tzs))
	for owner, tz := range tzs {
		raw[strconv.FormatInt(owner, 10)] = tz
	}
	return writeJSON(s.timezonesPath, raw)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return nil
}

// writeJSON writes v next to path and renames it into place so readers never
// observe a partial file.
func writeJSON(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
