package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteRepo_Contract(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "db", "reminders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	exerciseRepo(t, repo)
}

func TestSQLiteRepo_ReopenKeepsSchemaAndData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reminders.db")

	repo, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveTimezones(ctx, map[int64]string{5: "Asia/Tokyo"}))
	require.NoError(t, repo.Close())

	repo, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	tzs, err := repo.LoadTimezones(ctx)
	require.NoError(t, err)
	require.Equal(t, map[int64]string{5: "Asia/Tokyo"}, tzs)
}
