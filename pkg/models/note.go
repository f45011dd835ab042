// Package models contains domain models for notekeeper.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OwnerID identifies the chat user that owns notes, reminders and dialog state.
type OwnerID int64

// TagMarker prefixes a tag in user input ("#work buy paper").
const TagMarker = "#"

// Note is a tagged text note.
type Note struct {
	ID             string    `db:"id" json:"id"`
	OwnerID        OwnerID   `db:"owner_id" json:"owner_id"`
	Tag            string    `db:"tag" json:"tag"`
	Body           string    `db:"body" json:"body"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	CreatedAtEpoch int64     `db:"created_at_epoch" json:"created_at_epoch"`
}

// NewNote creates a note with a fresh surrogate id.
// The tag is stored without its leading marker.
func NewNote(owner OwnerID, tag, body string) *Note {
	now := time.Now().UTC()
	return &Note{
		ID:             uuid.NewString(),
		OwnerID:        owner,
		Tag:            NormalizeTag(tag),
		Body:           body,
		CreatedAt:      now,
		CreatedAtEpoch: now.UnixMilli(),
	}
}

// NormalizeTag strips surrounding whitespace and leading tag markers.
func NormalizeTag(tag string) string {
	return strings.TrimLeft(strings.TrimSpace(tag), TagMarker)
}

// DisplayTag renders a stored tag the way users type it.
func DisplayTag(tag string) string {
	if tag == "" {
		return ""
	}
	return TagMarker + tag
}
