// Package dialog holds the per-owner conversation state: which multi-step
// action, if any, the user is in the middle of.
package dialog

import "fmt"

// Kind is the state of an owner's dialog.
type Kind int

const (
	Idle Kind = iota
	AwaitingNoteText
	AwaitingReminderText
	AwaitingNoteEdit
	AwaitingReminderEdit
)

// Action is the pending action name for each kind.
type Action string

const (
	ActionNone         Action = "none"
	ActionAddNote      Action = "add_note"
	ActionAddReminder  Action = "add_reminder"
	ActionEditNote     Action = "edit_note"
	ActionEditReminder Action = "edit_reminder"
)

var kindActions = map[Kind]Action{
	Idle:                 ActionNone,
	AwaitingNoteText:     ActionAddNote,
	AwaitingReminderText: ActionAddReminder,
	AwaitingNoteEdit:     ActionEditNote,
	AwaitingReminderEdit: ActionEditReminder,
}

func (k Kind) String() string {
	if a, ok := kindActions[k]; ok {
		return string(a)
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseAction maps a pending action name back to its Kind.
func ParseAction(a string) (Kind, error) {
	for k, name := range kindActions {
		if string(name) == a {
			return k, nil
		}
	}
	return Idle, fmt.Errorf("unknown dialog action %q", a)
}

// Target identifies the note or reminder being edited.
type Target struct {
	ID   string `json:"id"`
	Body string `json:"body"`
	Tag  string `json:"tag,omitempty"`
}

// State is one owner's dialog state. Target is only meaningful for the edit
// kinds; constructors below keep it empty otherwise.
type State struct {
	Kind   Kind   `json:"kind"`
	Target Target `json:"target"`
}

// IdleState is the zero state.
func IdleState() State { return State{} }

// AwaitNote waits for "#tag text".
func AwaitNote() State { return State{Kind: AwaitingNoteText} }

// AwaitReminder waits for "text - date/time".
func AwaitReminder() State { return State{Kind: AwaitingReminderText} }

// EditNote waits for the replacement text of the targeted note.
func EditNote(t Target) State { return State{Kind: AwaitingNoteEdit, Target: t} }

// EditReminder waits for the replacement "text - date/time" of the targeted reminder.
func EditReminder(t Target) State { return State{Kind: AwaitingReminderEdit, Target: t} }

// Action returns the pending action name.
func (s State) Action() Action {
	return kindActions[s.Kind]
}

// EditTarget returns the body being replaced, or "" outside edit states.
func (s State) EditTarget() string {
	if s.IsEditing() {
		return s.Target.Body
	}
	return ""
}

// IsEditing reports whether the state replaces an existing record.
func (s State) IsEditing() bool {
	return s.Kind == AwaitingNoteEdit || s.Kind == AwaitingReminderEdit
}

// IsIdle reports whether no action is pending.
func (s State) IsIdle() bool {
	return s.Kind == Idle
}
