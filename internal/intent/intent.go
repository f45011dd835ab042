// Package intent describes the operations produced by interpreting chat text
// or button presses. Interpretation never executes anything; the assistant
// applies intents.
package intent

import (
	"time"

	"github.com/thebtf/notekeeper/internal/dialog"
)

// Intent is one of the concrete types in this package.
type Intent interface {
	// Name is a stable identifier for logs and metrics.
	Name() string
	// Terminal reports whether producing this intent completes a pending action.
	Terminal() bool
}

// CreateNote stores a new note.
type CreateNote struct {
	Tag  string
	Body string
}

// CreateReminder stores a new reminder.
type CreateReminder struct {
	Body     string
	Due      time.Time // UTC
	DueLocal time.Time // as resolved in the configured offset
}

// ReplaceNote atomically swaps an existing note for a new one.
type ReplaceNote struct {
	OldID   string
	OldBody string
	Tag     string
	NewBody string
}

// ReplaceReminder atomically swaps an existing reminder for a new one.
type ReplaceReminder struct {
	OldID       string
	OldBody     string
	NewBody     string
	NewDue      time.Time // UTC
	NewDueLocal time.Time
}

// DeleteNote removes a note by id, or by body when ID is empty.
type DeleteNote struct {
	ID   string
	Body string
}

// DeleteReminder removes a reminder by id, or by body when ID is empty.
type DeleteReminder struct {
	ID   string
	Body string
}

// Reason explains an Invalid intent.
type Reason string

const (
	ReasonMissingTag       Reason = "missing tag marker"
	ReasonEmptyNote        Reason = "empty note text"
	ReasonMalformed        Reason = "expected text - date/time"
	ReasonUnrecognizedTime Reason = "date/time not recognized"
	ReasonGone             Reason = "record no longer exists"
)

// Invalid is input that could not be accepted. The pending action is kept so
// the user can retry.
type Invalid struct {
	Reason Reason
	Expect dialog.Kind
}

// Noop is unrecognized input with no pending action.
type Noop struct{}

// Menu identifies a navigation menu.
type Menu string

const (
	MenuMain      Menu = "main"
	MenuNotes     Menu = "notes"
	MenuReminders Menu = "reminders"
)

// ShowMenu renders a menu.
type ShowMenu struct {
	Menu Menu
}

// PromptKind identifies the text a Prompt asks for.
type PromptKind string

const (
	PromptNoteText     PromptKind = "note_text"
	PromptReminderText PromptKind = "reminder_text"
	PromptNoteEdit     PromptKind = "note_edit"
	PromptReminderEdit PromptKind = "reminder_edit"
)

// Prompt asks the user for the next piece of text.
type Prompt struct {
	For    PromptKind
	Target dialog.Target
}

// ListTags shows the owner's distinct note tags.
type ListTags struct{}

// ListNotes shows notes with Tag, or all notes when All is set.
type ListNotes struct {
	Tag string
	All bool
}

// Period selects a reminder list window.
type Period string

const (
	PeriodToday    Period = "today"
	PeriodTomorrow Period = "tomorrow"
	PeriodWeek     Period = "week"
	PeriodPast     Period = "past"
)

// ListReminders shows reminders in a window.
type ListReminders struct {
	Period Period
}

func (CreateNote) Name() string      { return "create_note" }
func (CreateReminder) Name() string  { return "create_reminder" }
func (ReplaceNote) Name() string     { return "replace_note" }
func (ReplaceReminder) Name() string { return "replace_reminder" }
func (DeleteNote) Name() string      { return "delete_note" }
func (DeleteReminder) Name() string  { return "delete_reminder" }
func (Invalid) Name() string         { return "invalid" }
func (Noop) Name() string            { return "noop" }
func (ShowMenu) Name() string        { return "show_menu" }
func (Prompt) Name() string          { return "prompt" }
func (ListTags) Name() string        { return "list_tags" }
func (ListNotes) Name() string       { return "list_notes" }
func (ListReminders) Name() string   { return "list_reminders" }

func (CreateNote) Terminal() bool      { return true }
func (CreateReminder) Terminal() bool  { return true }
func (ReplaceNote) Terminal() bool     { return true }
func (ReplaceReminder) Terminal() bool { return true }
func (DeleteNote) Terminal() bool      { return false }
func (DeleteReminder) Terminal() bool  { return false }
func (Invalid) Terminal() bool         { return false }
func (Noop) Terminal() bool            { return false }
func (ShowMenu) Terminal() bool        { return false }
func (Prompt) Terminal() bool          { return false }
func (ListTags) Terminal() bool        { return false }
func (ListNotes) Terminal() bool       { return false }
func (ListReminders) Terminal() bool   { return false }

// Outcome is an intent together with the dialog state to commit once the
// intent has been applied successfully.
type Outcome struct {
	Intent Intent
	Next   dialog.State
}
