package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/thebtf/notekeeper/internal/storage"
	"github.com/thebtf/notekeeper/pkg/models"
)

var _ storage.Store = (*Store)(nil)

type rowScanner interface{ Scan(...any) error }

// fromEpoch converts a stored millisecond epoch to UTC.
func fromEpoch(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func scanNote(scanner rowScanner) (*models.Note, error) {
	var n models.Note
	if err := scanner.Scan(&n.ID, &n.OwnerID, &n.Tag, &n.Body, &n.CreatedAtEpoch); err != nil {
		return nil, err
	}
	n.CreatedAt = fromEpoch(n.CreatedAtEpoch)
	return &n, nil
}

func scanNoteRows(rows *sql.Rows) ([]*models.Note, error) {
	defer rows.Close()
	var notes []*models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func scanReminder(scanner rowScanner) (*models.Reminder, error) {
	var r models.Reminder
	var dueEpoch int64
	if err := scanner.Scan(&r.ID, &r.OwnerID, &dueEpoch, &r.Body, &r.CreatedAtEpoch); err != nil {
		return nil, err
	}
	r.DueAt = fromEpoch(dueEpoch)
	r.CreatedAt = fromEpoch(r.CreatedAtEpoch)
	return &r, nil
}

func scanReminderRows(rows *sql.Rows) ([]*models.Reminder, error) {
	defer rows.Close()
	var reminders []*models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// notFound maps sql.ErrNoRows to storage.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
