package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/thebtf/notekeeper/pkg/models"
)

const noteColumns = `id, owner_id, tag, body, created_at_epoch`

const insertNoteQuery = `
	INSERT INTO notes (id, owner_id, tag, body, created_at, created_at_epoch)
	VALUES (?, ?, ?, ?, ?, ?)
`

func insertNoteArgs(n *models.Note) []any {
	return []any{n.ID, n.OwnerID, n.Tag, n.Body, n.CreatedAt.Format(time.RFC3339), n.CreatedAtEpoch}
}

// InsertNote stores n.
func (s *Store) InsertNote(ctx context.Context, n *models.Note) error {
	if _, err := s.ExecContext(ctx, insertNoteQuery, insertNoteArgs(n)...); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// FindNotes returns owner's notes with tag, or all notes when tag is empty.
func (s *Store) FindNotes(ctx context.Context, owner models.OwnerID, tag string) ([]*models.Note, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if tag == "" {
		rows, err = s.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes
			WHERE owner_id = ? ORDER BY created_at_epoch, id`, owner)
	} else {
		rows, err = s.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes
			WHERE owner_id = ? AND tag = ? ORDER BY created_at_epoch, id`, owner, models.NormalizeTag(tag))
	}
	if err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}
	return scanNoteRows(rows)
}

// ListTags returns owner's distinct non-empty tags.
func (s *Store) ListTags(ctx context.Context, owner models.OwnerID) ([]string, error) {
	rows, err := s.QueryContext(ctx, `SELECT DISTINCT tag FROM notes
		WHERE owner_id = ? AND tag != '' ORDER BY tag`, owner)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// NoteByID returns owner's note id or storage.ErrNotFound.
func (s *Store) NoteByID(ctx context.Context, owner models.OwnerID, id string) (*models.Note, error) {
	row := s.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE owner_id = ? AND id = ?`, owner, id)
	n, err := scanNote(row)
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

// DeleteNote removes owner's notes whose body is exactly body.
func (s *Store) DeleteNote(ctx context.Context, owner models.OwnerID, body string) (int64, error) {
	n, err := affected(s.ExecContext(ctx, `DELETE FROM notes WHERE owner_id = ? AND body = ?`, owner, body))
	if err != nil {
		return 0, fmt.Errorf("delete note: %w", err)
	}
	return n, nil
}

// DeleteNoteByID removes owner's note id.
func (s *Store) DeleteNoteByID(ctx context.Context, owner models.OwnerID, id string) (int64, error) {
	n, err := affected(s.ExecContext(ctx, `DELETE FROM notes WHERE owner_id = ? AND id = ?`, owner, id))
	if err != nil {
		return 0, fmt.Errorf("delete note %s: %w", id, err)
	}
	return n, nil
}

// ReplaceNote deletes oldID and inserts n atomically.
func (s *Store) ReplaceNote(ctx context.Context, owner models.OwnerID, oldID string, n *models.Note) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE owner_id = ? AND id = ?`, owner, oldID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, insertNoteQuery, insertNoteArgs(n)...)
		return err
	})
	if err != nil {
		return fmt.Errorf("replace note %s: %w", oldID, err)
	}
	return nil
}
