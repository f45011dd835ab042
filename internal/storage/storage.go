// Package storage defines the persistence contract shared by the SQLite and
// PostgreSQL backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/thebtf/notekeeper/pkg/models"
)

// ErrNotFound is returned by by-id lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// NoteStore persists notes.
type NoteStore interface {
	InsertNote(ctx context.Context, n *models.Note) error
	// FindNotes returns owner's notes with tag, or all of them when tag is empty,
	// oldest first.
	FindNotes(ctx context.Context, owner models.OwnerID, tag string) ([]*models.Note, error)
	// ListTags returns owner's distinct non-empty tags in ascending order.
	ListTags(ctx context.Context, owner models.OwnerID) ([]string, error)
	NoteByID(ctx context.Context, owner models.OwnerID, id string) (*models.Note, error)
	// DeleteNote removes every note of owner with exactly body.
	DeleteNote(ctx context.Context, owner models.OwnerID, body string) (int64, error)
	DeleteNoteByID(ctx context.Context, owner models.OwnerID, id string) (int64, error)
	// ReplaceNote deletes oldID and inserts n in one transaction. A missing
	// oldID is not an error.
	ReplaceNote(ctx context.Context, owner models.OwnerID, oldID string, n *models.Note) error
}

// ReminderStore persists reminders.
type ReminderStore interface {
	InsertReminder(ctx context.Context, r *models.Reminder) error
	// FindRemindersDue returns reminders of every owner with DueAt <= now,
	// earliest first.
	FindRemindersDue(ctx context.Context, now time.Time) ([]*models.Reminder, error)
	// FindRemindersInRange returns owner's reminders with start <= DueAt < end.
	FindRemindersInRange(ctx context.Context, owner models.OwnerID, start, end time.Time) ([]*models.Reminder, error)
	// FindRemindersBefore returns owner's reminders with DueAt < t.
	FindRemindersBefore(ctx context.Context, owner models.OwnerID, t time.Time) ([]*models.Reminder, error)
	ReminderByID(ctx context.Context, owner models.OwnerID, id string) (*models.Reminder, error)
	// DeleteReminder removes every reminder of owner with exactly body.
	DeleteReminder(ctx context.Context, owner models.OwnerID, body string) (int64, error)
	DeleteReminderByID(ctx context.Context, owner models.OwnerID, id string) (int64, error)
	// ReplaceReminder deletes oldID and inserts r in one transaction.
	ReplaceReminder(ctx context.Context, owner models.OwnerID, oldID string, r *models.Reminder) error
}

// Store is the full persistence contract.
type Store interface {
	NoteStore
	ReminderStore
	Stats(ctx context.Context, now time.Time) (*models.Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

// DayBounds returns the UTC instants enclosing the calendar day of date in loc.
func DayBounds(date time.Time, loc *time.Location) (start, end time.Time) {
	local := date.In(loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end = start.AddDate(0, 0, 1)
	return start.UTC(), end.UTC()
}

// FindRemindersByLocalDate returns owner's reminders falling on the calendar
// day of date in loc.
func FindRemindersByLocalDate(ctx context.Context, s ReminderStore, owner models.OwnerID, date time.Time, loc *time.Location) ([]*models.Reminder, error) {
	start, end := DayBounds(date, loc)
	return s.FindRemindersInRange(ctx, owner, start, end)
}
