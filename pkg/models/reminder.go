// Package models contains domain models for notekeeper.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is a one-shot notification scheduled for an absolute instant.
// DueAt is always stored in UTC.
type Reminder struct {
	ID             string    `db:"id" json:"id"`
	OwnerID        OwnerID   `db:"owner_id" json:"owner_id"`
	DueAt          time.Time `db:"due_at" json:"due_at"`
	Body           string    `db:"body" json:"body"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	CreatedAtEpoch int64     `db:"created_at_epoch" json:"created_at_epoch"`
}

// NewReminder creates a reminder with a fresh surrogate id.
func NewReminder(owner OwnerID, dueAt time.Time, body string) *Reminder {
	now := time.Now().UTC()
	return &Reminder{
		ID:             uuid.NewString(),
		OwnerID:        owner,
		DueAt:          dueAt.UTC(),
		Body:           body,
		CreatedAt:      now,
		CreatedAtEpoch: now.UnixMilli(),
	}
}

// IsDue reports whether the reminder should fire at now.
func (r *Reminder) IsDue(now time.Time) bool {
	return !r.DueAt.After(now)
}

// Stats summarizes stored records.
type Stats struct {
	Notes     int64 `json:"notes"`
	Reminders int64 `json:"reminders"`
	Owners    int64 `json:"owners"`
	Overdue   int64 `json:"overdue"`
}
