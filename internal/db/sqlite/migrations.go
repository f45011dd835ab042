package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "notes_and_reminders",
		stmts: []string{
			`CREATE TABLE notes (
				id               TEXT PRIMARY KEY,
				owner_id         INTEGER NOT NULL,
				tag              TEXT NOT NULL DEFAULT '',
				body             TEXT NOT NULL,
				created_at       TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL
			)`,
			`CREATE INDEX idx_notes_owner_tag ON notes(owner_id, tag)`,
			`CREATE INDEX idx_notes_owner_body ON notes(owner_id, body)`,
			`CREATE TABLE reminders (
				id               TEXT PRIMARY KEY,
				owner_id         INTEGER NOT NULL,
				due_at           TEXT NOT NULL,
				due_at_epoch     INTEGER NOT NULL,
				body             TEXT NOT NULL,
				created_at       TEXT NOT NULL,
				created_at_epoch INTEGER NOT NULL
			)`,
			`CREATE INDEX idx_reminders_due ON reminders(due_at_epoch)`,
			`CREATE INDEX idx_reminders_owner_due ON reminders(owner_id, due_at_epoch)`,
		},
	},
}

// Migrate applies every migration newer than the recorded schema version.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_versions (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_versions (version, name) VALUES (?, ?)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		log.Info().Int("version", m.version).Str("name", m.name).Msg("Applied migration")
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_versions`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}
