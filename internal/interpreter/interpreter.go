// Package interpreter turns free-form chat text into intents according to the
// owner's pending dialog action.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thebtf/notekeeper/internal/clock"
	"github.com/thebtf/notekeeper/internal/dialog"
	"github.com/thebtf/notekeeper/internal/intent"
	"github.com/thebtf/notekeeper/internal/textnorm"
	"github.com/thebtf/notekeeper/internal/timeparse"
	"github.com/thebtf/notekeeper/pkg/models"
)

// Command is a top-level command. Commands are matched case-insensitively
// against the whole message and win over any pending action.
type Command int

const (
	CommandMenu Command = iota + 1
	CommandAddNote
	CommandAddReminder
)

var defaultCommands = map[string]Command{
	"/start":               CommandMenu,
	"/menu":                CommandMenu,
	"меню":                 CommandMenu,
	"menu":                 CommandMenu,
	"/note":                CommandAddNote,
	"добавить заметку":     CommandAddNote,
	"add note":             CommandAddNote,
	"/remind":              CommandAddReminder,
	"добавить напоминание": CommandAddReminder,
	"add reminder":         CommandAddReminder,
}

type transition func(state dialog.State, text string) intent.Outcome

// Interpreter decides what a message means. It reads dialog state but never
// writes it; callers commit Outcome.Next after applying the intent.
type Interpreter struct {
	states      dialog.Store
	normalizer  *timeparse.Normalizer
	clock       clock.Clock
	commands    map[string]Command
	transitions map[dialog.Kind]transition
}

// New creates an Interpreter.
func New(states dialog.Store, normalizer *timeparse.Normalizer, clk clock.Clock) *Interpreter {
	if clk == nil {
		clk = clock.System{}
	}
	i := &Interpreter{
		states:     states,
		normalizer: normalizer,
		clock:      clk,
		commands:   make(map[string]Command, len(defaultCommands)),
	}
	for text, c := range defaultCommands {
		i.commands[text] = c
	}
	i.transitions = map[dialog.Kind]transition{
		dialog.Idle:                 i.fromIdle,
		dialog.AwaitingNoteText:     i.fromAwaitingNote,
		dialog.AwaitingReminderText: i.fromAwaitingReminder,
		dialog.AwaitingNoteEdit:     i.fromNoteEdit,
		dialog.AwaitingReminderEdit: i.fromReminderEdit,
	}
	return i
}

// Alias makes text trigger c. Used for reply-keyboard labels that differ
// from the built-in command texts. Not safe for use concurrently with Decide.
func (i *Interpreter) Alias(text string, c Command) {
	if text = strings.ToLower(textnorm.Clean(text)); text != "" {
		i.commands[text] = c
	}
}

// Interpret loads owner's state and decides what text means.
func (i *Interpreter) Interpret(ctx context.Context, owner models.OwnerID, text string) (intent.Outcome, error) {
	state, err := i.states.Get(ctx, owner)
	if err != nil {
		return intent.Outcome{}, fmt.Errorf("load dialog state: %w", err)
	}
	return i.Decide(state, text), nil
}

// Decide is the transition function of the dialog state machine.
func (i *Interpreter) Decide(state dialog.State, text string) intent.Outcome {
	text = textnorm.Clean(text)

	if cmd, ok := i.commands[strings.ToLower(text)]; ok {
		return commandOutcome(cmd)
	}

	t, ok := i.transitions[state.Kind]
	if !ok {
		return intent.Outcome{Intent: intent.Noop{}, Next: dialog.IdleState()}
	}
	return t(state, text)
}

func commandOutcome(cmd Command) intent.Outcome {
	switch cmd {
	case CommandAddNote:
		return intent.Outcome{Intent: intent.Prompt{For: intent.PromptNoteText}, Next: dialog.AwaitNote()}
	case CommandAddReminder:
		return intent.Outcome{Intent: intent.Prompt{For: intent.PromptReminderText}, Next: dialog.AwaitReminder()}
	default:
		return intent.Outcome{Intent: intent.ShowMenu{Menu: intent.MenuMain}, Next: dialog.IdleState()}
	}
}

func (i *Interpreter) fromIdle(state dialog.State, text string) intent.Outcome {
	if !strings.Contains(text, models.TagMarker) {
		return intent.Outcome{Intent: intent.Noop{}, Next: state}
	}
	return noteOutcome(state, text)
}

func (i *Interpreter) fromAwaitingNote(state dialog.State, text string) intent.Outcome {
	return noteOutcome(state, text)
}

func noteOutcome(state dialog.State, text string) intent.Outcome {
	tag, body, reason := ParseNote(text)
	if reason != "" {
		return invalid(state, reason)
	}
	return intent.Outcome{
		Intent: intent.CreateNote{Tag: tag, Body: body},
		Next:   dialog.IdleState(),
	}
}

func (i *Interpreter) fromAwaitingReminder(state dialog.State, text string) intent.Outcome {
	parsed, reason := i.parseReminder(text)
	if reason != "" {
		return invalid(state, reason)
	}
	return intent.Outcome{
		Intent: intent.CreateReminder{Body: parsed.Body, Due: parsed.UTC, DueLocal: parsed.Local},
		Next:   dialog.IdleState(),
	}
}

func (i *Interpreter) fromNoteEdit(state dialog.State, text string) intent.Outcome {
	if text == "" {
		return invalid(state, intent.ReasonEmptyNote)
	}

	tag, body := state.Target.Tag, text
	if strings.HasPrefix(text, models.TagMarker) {
		first, rest := textnorm.SplitFirstToken(text)
		if rest == "" {
			return invalid(state, intent.ReasonEmptyNote)
		}
		tag, body = models.NormalizeTag(first), rest
	}

	return intent.Outcome{
		Intent: intent.ReplaceNote{
			OldID:   state.Target.ID,
			OldBody: state.Target.Body,
			Tag:     tag,
			NewBody: body,
		},
		Next: dialog.IdleState(),
	}
}

func (i *Interpreter) fromReminderEdit(state dialog.State, text string) intent.Outcome {
	parsed, reason := i.parseReminder(text)
	if reason != "" {
		return invalid(state, reason)
	}
	return intent.Outcome{
		Intent: intent.ReplaceReminder{
			OldID:       state.Target.ID,
			OldBody:     state.Target.Body,
			NewBody:     parsed.Body,
			NewDue:      parsed.UTC,
			NewDueLocal: parsed.Local,
		},
		Next: dialog.IdleState(),
	}
}

func (i *Interpreter) parseReminder(text string) (timeparse.Parsed, intent.Reason) {
	parsed, err := i.normalizer.Normalize(text, i.clock.Now())
	switch {
	case err == nil:
		return parsed, ""
	case errors.Is(err, timeparse.ErrMalformedInput):
		return parsed, intent.ReasonMalformed
	default:
		return parsed, intent.ReasonUnrecognizedTime
	}
}

func invalid(state dialog.State, reason intent.Reason) intent.Outcome {
	return intent.Outcome{
		Intent: intent.Invalid{Reason: reason, Expect: state.Kind},
		Next:   state,
	}
}

// ParseNote splits "#tag body" into its tag (marker stripped) and body. The
// tag is the first whitespace-delimited token. reason is non-empty when the
// text cannot become a note.
func ParseNote(text string) (tag, body string, reason intent.Reason) {
	if !strings.Contains(text, models.TagMarker) {
		return "", "", intent.ReasonMissingTag
	}
	first, rest := textnorm.SplitFirstToken(text)
	if rest == "" {
		return "", "", intent.ReasonEmptyNote
	}
	return models.NormalizeTag(first), rest, ""
}
