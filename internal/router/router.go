// Package router maps inline-button callback tokens to intents.
//
// Record tokens follow <verb>_<kind>_<payload> where payload is the record id,
// e.g. "delete_note_3f1c...". Navigation tokens are fixed strings.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thebtf/notekeeper/internal/dialog"
	"github.com/thebtf/notekeeper/internal/intent"
	"github.com/thebtf/notekeeper/internal/storage"
	"github.com/thebtf/notekeeper/pkg/models"
)

// MaxTokenLen is the largest callback payload Telegram accepts, in bytes.
const MaxTokenLen = 64

// Navigation tokens.
const (
	TokenMainMenu          = "main_menu"
	TokenAddNote           = "add_note"
	TokenAddReminder       = "add_reminder"
	TokenNotesMenu         = "notes_menu"
	TokenRemindersMenu     = "reminders_menu"
	TokenAllTags           = "all_tags"
	TokenFindNote          = "find_note"
	TokenAllNotes          = "all_notes"
	TokenTodayReminders    = "today_reminders"
	TokenTomorrowReminders = "tomorrow_reminders"
	TokenWeekReminders     = "week_reminders"
	TokenPastReminders     = "past_reminders"
)

const (
	prefixEditNote       = "edit_note_"
	prefixDeleteNote     = "delete_note_"
	prefixEditReminder   = "edit_reminder_"
	prefixDeleteReminder = "delete_reminder_"
	prefixTag            = "tag_"
)

// EditNoteToken returns the token of the edit button for note id.
func EditNoteToken(id string) string { return prefixEditNote + id }

// DeleteNoteToken returns the token of the delete button for note id.
func DeleteNoteToken(id string) string { return prefixDeleteNote + id }

// EditReminderToken returns the token of the edit button for reminder id.
func EditReminderToken(id string) string { return prefixEditReminder + id }

// DeleteReminderToken returns the token of the delete button for reminder id.
func DeleteReminderToken(id string) string { return prefixDeleteReminder + id }

// TagToken returns the token listing notes with tag.
func TagToken(tag string) string { return prefixTag + tag }

// Lookup resolves records referenced by edit tokens.
// Missing records are reported as storage.ErrNotFound.
type Lookup interface {
	NoteByID(ctx context.Context, owner models.OwnerID, id string) (*models.Note, error)
	ReminderByID(ctx context.Context, owner models.OwnerID, id string) (*models.Reminder, error)
}

type prefixHandler struct {
	prefix string
	handle func(ctx context.Context, owner models.OwnerID, payload string, state dialog.State) (intent.Outcome, error)
}

// Router decides what a button press means. Like the interpreter it never
// writes dialog state.
type Router struct {
	lookup   Lookup
	states   dialog.Store
	fixed    map[string]func(state dialog.State) intent.Outcome
	prefixed []prefixHandler
}

// New creates a Router.
func New(lookup Lookup, states dialog.Store) *Router {
	r := &Router{lookup: lookup, states: states}

	keep := func(i intent.Intent) func(dialog.State) intent.Outcome {
		return func(s dialog.State) intent.Outcome { return intent.Outcome{Intent: i, Next: s} }
	}
	r.fixed = map[string]func(dialog.State) intent.Outcome{
		TokenMainMenu: func(dialog.State) intent.Outcome {
			return intent.Outcome{Intent: intent.ShowMenu{Menu: intent.MenuMain}, Next: dialog.IdleState()}
		},
		TokenAddNote: func(dialog.State) intent.Outcome {
			return intent.Outcome{Intent: intent.Prompt{For: intent.PromptNoteText}, Next: dialog.AwaitNote()}
		},
		TokenAddReminder: func(dialog.State) intent.Outcome {
			return intent.Outcome{Intent: intent.Prompt{For: intent.PromptReminderText}, Next: dialog.AwaitReminder()}
		},
		TokenNotesMenu:         keep(intent.ShowMenu{Menu: intent.MenuNotes}),
		TokenRemindersMenu:     keep(intent.ShowMenu{Menu: intent.MenuReminders}),
		TokenAllTags:           keep(intent.ListTags{}),
		TokenFindNote:          keep(intent.ListTags{}),
		TokenAllNotes:          keep(intent.ListNotes{All: true}),
		TokenTodayReminders:    keep(intent.ListReminders{Period: intent.PeriodToday}),
		TokenTomorrowReminders: keep(intent.ListReminders{Period: intent.PeriodTomorrow}),
		TokenWeekReminders:     keep(intent.ListReminders{Period: intent.PeriodWeek}),
		TokenPastReminders:     keep(intent.ListReminders{Period: intent.PeriodPast}),
	}

	r.prefixed = []prefixHandler{
		{prefixEditNote, r.editNote},
		{prefixDeleteNote, deleteNote},
		{prefixEditReminder, r.editReminder},
		{prefixDeleteReminder, deleteReminder},
		{prefixTag, listTag},
	}
	return r
}

// Route interprets token for owner. Unknown tokens yield Noop with the
// current state.
func (r *Router) Route(ctx context.Context, owner models.OwnerID, token string) (intent.Outcome, error) {
	state, err := r.states.Get(ctx, owner)
	if err != nil {
		return intent.Outcome{}, fmt.Errorf("load dialog state: %w", err)
	}

	if f, ok := r.fixed[token]; ok {
		return f(state), nil
	}

	for _, h := range r.prefixed {
		payload, ok := strings.CutPrefix(token, h.prefix)
		if !ok {
			continue
		}
		if payload == "" {
			break
		}
		return h.handle(ctx, owner, payload, state)
	}

	return intent.Outcome{Intent: intent.Noop{}, Next: state}, nil
}

func (r *Router) editNote(ctx context.Context, owner models.OwnerID, id string, state dialog.State) (intent.Outcome, error) {
	n, err := r.lookup.NoteByID(ctx, owner, id)
	if errors.Is(err, storage.ErrNotFound) {
		return gone(state, dialog.AwaitingNoteEdit), nil
	}
	if err != nil {
		return intent.Outcome{}, fmt.Errorf("lookup note %s: %w", id, err)
	}

	target := dialog.Target{ID: n.ID, Body: n.Body, Tag: n.Tag}
	return intent.Outcome{
		Intent: intent.Prompt{For: intent.PromptNoteEdit, Target: target},
		Next:   dialog.EditNote(target),
	}, nil
}

func (r *Router) editReminder(ctx context.Context, owner models.OwnerID, id string, state dialog.State) (intent.Outcome, error) {
	rem, err := r.lookup.ReminderByID(ctx, owner, id)
	if errors.Is(err, storage.ErrNotFound) {
		return gone(state, dialog.AwaitingReminderEdit), nil
	}
	if err != nil {
		return intent.Outcome{}, fmt.Errorf("lookup reminder %s: %w", id, err)
	}

	target := dialog.Target{ID: rem.ID, Body: rem.Body}
	return intent.Outcome{
		Intent: intent.Prompt{For: intent.PromptReminderEdit, Target: target},
		Next:   dialog.EditReminder(target),
	}, nil
}

func deleteNote(_ context.Context, _ models.OwnerID, id string, state dialog.State) (intent.Outcome, error) {
	return intent.Outcome{Intent: intent.DeleteNote{ID: id}, Next: state}, nil
}

func deleteReminder(_ context.Context, _ models.OwnerID, id string, state dialog.State) (intent.Outcome, error) {
	return intent.Outcome{Intent: intent.DeleteReminder{ID: id}, Next: state}, nil
}

func listTag(_ context.Context, _ models.OwnerID, tag string, state dialog.State) (intent.Outcome, error) {
	return intent.Outcome{Intent: intent.ListNotes{Tag: models.NormalizeTag(tag)}, Next: state}, nil
}

func gone(state dialog.State, expect dialog.Kind) intent.Outcome {
	return intent.Outcome{
		Intent: intent.Invalid{Reason: intent.ReasonGone, Expect: expect},
		Next:   state,
	}
}
