package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
// Saves replace table contents inside a single transaction.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// LoadReminders returns all stored reminders ordered by trigger instant.
func (r *SQLiteRepo) LoadReminders(ctx context.Context) ([]domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT at, owner, text, tz
		FROM reminders
		ORDER BY at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Reminder
	for rows.Next() {
		var (
			at    float64
			owner int64
			text  string
			tz    string
		)
		if err := rows.Scan(&at, &owner, &text, &tz); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		res = append(res, domain.Reminder{
			At:       domain.FromUnixSeconds(at),
			Owner:    owner,
			Text:     text,
			Timezone: tz,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// SaveReminders replaces the reminders table with the given set.
func (r *SQLiteRepo) SaveReminders(ctx context.Context, reminders []domain.Reminder) error {
	return r.replace(ctx, "reminders", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO reminders (at, owner, text, tz) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, rem := range reminders {
			if _, err := stmt.ExecContext(ctx, domain.UnixSeconds(rem.At), rem.Owner, rem.Text, rem.Timezone); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadTimezones returns all stored timezone preferences.
func (r *SQLiteRepo) LoadTimezones(ctx context.Context) (map[int64]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT owner, tz FROM timezones`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[int64]string)
	for rows.Next() {
		var (
			owner int64
			tz    string
		)
		if err := rows.Scan(&owner, &tz); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		res[owner] = tz
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// SaveTimezones replaces the timezones table.
func (r *SQLiteRepo) SaveTimezones(ctx context.Context, tzs map[int64]string) error {
	return r.replace(ctx, "timezones", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO timezones (owner, tz) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for owner, tz := range tzs {
			if _, err := stmt.ExecContext(ctx, owner, tz); err != nil {
				return err
			}
		}
		return nil
	})
}

// replace empties table and refills it via fill, all in one transaction.
func (r *SQLiteRepo) replace(ctx context.Context, table string, fill func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := fill(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
