package gorm

import (
	"time"

	"github.com/thebtf/notekeeper/pkg/models"
)

// Note is the notes table row.
type Note struct {
	ID             string `gorm:"primaryKey;type:text"`
	OwnerID        int64  `gorm:"not null;index:idx_notes_owner_tag,priority:1;index:idx_notes_owner_body,priority:1"`
	Tag            string `gorm:"type:text;not null;default:'';index:idx_notes_owner_tag,priority:2"`
	Body           string `gorm:"type:text;not null;index:idx_notes_owner_body,priority:2"`
	CreatedAt      string `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"not null"`
}

func (Note) TableName() string { return "notes" }

// Reminder is the reminders table row.
type Reminder struct {
	ID             string `gorm:"primaryKey;type:text"`
	OwnerID        int64  `gorm:"not null;index:idx_reminders_owner_due,priority:1"`
	DueAt          string `gorm:"not null"`
	DueAtEpoch     int64  `gorm:"not null;index:idx_reminders_due;index:idx_reminders_owner_due,priority:2"`
	Body           string `gorm:"type:text;not null"`
	CreatedAt      string `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"not null"`
}

func (Reminder) TableName() string { return "reminders" }

func fromEpoch(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func noteRow(n *models.Note) *Note {
	return &Note{
		ID:             n.ID,
		OwnerID:        int64(n.OwnerID),
		Tag:            n.Tag,
		Body:           n.Body,
		CreatedAt:      n.CreatedAt.UTC().Format(time.RFC3339),
		CreatedAtEpoch: n.CreatedAtEpoch,
	}
}

func (n *Note) model() *models.Note {
	return &models.Note{
		ID:             n.ID,
		OwnerID:        models.OwnerID(n.OwnerID),
		Tag:            n.Tag,
		Body:           n.Body,
		CreatedAt:      fromEpoch(n.CreatedAtEpoch),
		CreatedAtEpoch: n.CreatedAtEpoch,
	}
}

func reminderRow(r *models.Reminder) *Reminder {
	due := r.DueAt.UTC()
	return &Reminder{
		ID:             r.ID,
		OwnerID:        int64(r.OwnerID),
		DueAt:          due.Format(time.RFC3339),
		DueAtEpoch:     due.UnixMilli(),
		Body:           r.Body,
		CreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339),
		CreatedAtEpoch: r.CreatedAtEpoch,
	}
}

func (r *Reminder) model() *models.Reminder {
	return &models.Reminder{
		ID:             r.ID,
		OwnerID:        models.OwnerID(r.OwnerID),
		DueAt:          fromEpoch(r.DueAtEpoch),
		Body:           r.Body,
		CreatedAt:      fromEpoch(r.CreatedAtEpoch),
		CreatedAtEpoch: r.CreatedAtEpoch,
	}
}

func noteModels(rows []Note) []*models.Note {
	out := make([]*models.Note, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].model())
	}
	return out
}

func reminderModels(rows []Reminder) []*models.Reminder {
	out := make([]*models.Reminder, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].model())
	}
	return out
}
