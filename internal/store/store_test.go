package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// exerciseRepo checks the save/load contract shared by every backend.
func exerciseRepo(t *testing.T, repo Repo) {
	t.Helper()
	ctx := context.Background()

	got, err := repo.LoadReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	tzs, err := repo.LoadTimezones(ctx)
	require.NoError(t, err)
	assert.Empty(t, tzs)

	want := []domain.Reminder{
		{At: time.Date(2030, time.January, 1, 9, 0, 0, 0, time.UTC), Owner: 42, Text: "Standup", Timezone: "UTC"},
		{At: time.Date(2030, time.January, 1, 9, 0, 0, 250*int(time.Millisecond), time.UTC), Owner: 7, Text: "Tea, \"green\"", Timezone: "Europe/Berlin"},
		{At: time.Date(2031, time.March, 3, 3, 3, 3, 0, time.UTC), Owner: 42, Text: "Пора", Timezone: "Europe/Moscow"},
	}
	require.NoError(t, repo.SaveReminders(ctx, want))

	got, err = repo.LoadReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Saves replace rather than append.
	require.NoError(t, repo.SaveReminders(ctx, want[2:]))
	got, err = repo.LoadReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, want[2:], got)

	require.NoError(t, repo.SaveReminders(ctx, nil))
	got, err = repo.LoadReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	prefs := map[int64]string{1: "Europe/Berlin", 1 << 40: "Pacific/Auckland"}
	require.NoError(t, repo.SaveTimezones(ctx, prefs))
	tzs, err = repo.LoadTimezones(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefs, tzs)

	require.NoError(t, repo.SaveTimezones(ctx, map[int64]string{1: "UTC"}))
	tzs, err = repo.LoadTimezones(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "UTC"}, tzs)
}

func TestInstantKey(t *testing.T) {
	at := time.Date(2030, time.January, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "1893488400.0", instantKey(at))
	assert.Equal(t, "1893488400.5", instantKey(at.Add(500*time.Millisecond)))

	back, err := parseInstantKey("1893488400.0")
	require.NoError(t, err)
	assert.Equal(t, at, back)

	_, err = parseInstantKey("soon")
	assert.Error(t, err)
}
