package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/thebtf/notekeeper/pkg/models"
)

const reminderColumns = `id, owner_id, due_at_epoch, body, created_at_epoch`

const insertReminderQuery = `
	INSERT INTO reminders (id, owner_id, due_at, due_at_epoch, body, created_at, created_at_epoch)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

func insertReminderArgs(r *models.Reminder) []any {
	due := r.DueAt.UTC()
	return []any{
		r.ID, r.OwnerID, due.Format(time.RFC3339), due.UnixMilli(), r.Body,
		r.CreatedAt.Format(time.RFC3339), r.CreatedAtEpoch,
	}
}

// InsertReminder stores r.
func (s *Store) InsertReminder(ctx context.Context, r *models.Reminder) error {
	if _, err := s.ExecContext(ctx, insertReminderQuery, insertReminderArgs(r)...); err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// FindRemindersDue returns all owners' reminders due at or before now.
func (s *Store) FindRemindersDue(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	rows, err := s.QueryContext(ctx, `SELECT `+reminderColumns+` FROM reminders
		WHERE due_at_epoch <= ? ORDER BY due_at_epoch, id`, now.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("find due reminders: %w", err)
	}
	return scanReminderRows(rows)
}

// FindRemindersInRange returns owner's reminders with start <= due < end.
func (s *Store) FindRemindersInRange(ctx context.Context, owner models.OwnerID, start, end time.Time) ([]*models.Reminder, error) {
	rows, err := s.QueryContext(ctx, `SELECT `+reminderColumns+` FROM reminders
		WHERE owner_id = ? AND due_at_epoch >= ? AND due_at_epoch < ?
		ORDER BY due_at_epoch, id`, owner, start.UTC().UnixMilli(), end.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("find reminders in range: %w", err)
	}
	return scanReminderRows(rows)
}

// FindRemindersBefore returns owner's reminders due strictly before t.
func (s *Store) FindRemindersBefore(ctx context.Context, owner models.OwnerID, t time.Time) ([]*models.Reminder, error) {
	rows, err := s.QueryContext(ctx, `SELECT `+reminderColumns+` FROM reminders
		WHERE owner_id = ? AND due_at_epoch < ?
		ORDER BY due_at_epoch, id`, owner, t.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("find past reminders: %w", err)
	}
	return scanReminderRows(rows)
}

// ReminderByID returns owner's reminder id or storage.ErrNotFound.
func (s *Store) ReminderByID(ctx context.Context, owner models.OwnerID, id string) (*models.Reminder, error) {
	row := s.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE owner_id = ? AND id = ?`, owner, id)
	r, err := scanReminder(row)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// DeleteReminder removes owner's reminders whose body is exactly body.
func (s *Store) DeleteReminder(ctx context.Context, owner models.OwnerID, body string) (int64, error) {
	n, err := affected(s.ExecContext(ctx, `DELETE FROM reminders WHERE owner_id = ? AND body = ?`, owner, body))
	if err != nil {
		return 0, fmt.Errorf("delete reminder: %w", err)
	}
	return n, nil
}

// DeleteReminderByID removes owner's reminder id.
func (s *Store) DeleteReminderByID(ctx context.Context, owner models.OwnerID, id string) (int64, error) {
	n, err := affected(s.ExecContext(ctx, `DELETE FROM reminders WHERE owner_id = ? AND id = ?`, owner, id))
	if err != nil {
		return 0, fmt.Errorf("delete reminder %s: %w", id, err)
	}
	return n, nil
}

// ReplaceReminder deletes oldID and inserts r atomically.
func (s *Store) ReplaceReminder(ctx context.Context, owner models.OwnerID, oldID string, r *models.Reminder) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE owner_id = ? AND id = ?`, owner, oldID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, insertReminderQuery, insertReminderArgs(r)...)
		return err
	})
	if err != nil {
		return fmt.Errorf("replace reminder %s: %w", oldID, err)
	}
	return nil
}

// Stats counts stored records. Overdue counts reminders due at or before now.
func (s *Store) Stats(ctx context.Context, now time.Time) (*models.Stats, error) {
	var st models.Stats
	err := s.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM notes),
			(SELECT COUNT(*) FROM reminders),
			(SELECT COUNT(*) FROM (SELECT owner_id FROM notes UNION SELECT owner_id FROM reminders)),
			(SELECT COUNT(*) FROM reminders WHERE due_at_epoch <= ?)
	`, now.UTC().UnixMilli()).Scan(&st.Notes, &st.Reminders, &st.Owners, &st.Overdue)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}
