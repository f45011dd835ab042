package interpreter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/notekeeper/internal/clock"
	"github.com/thebtf/notekeeper/internal/dialog"
	"github.com/thebtf/notekeeper/internal/intent"
	"github.com/thebtf/notekeeper/internal/timeparse"
	"github.com/thebtf/notekeeper/pkg/models"
)

var moscow = time.FixedZone("UTC+03:00", 3*60*60)

type InterpreterSuite struct {
	suite.Suite
	ctx    context.Context
	states *dialog.MemoryStore
	clock  *clock.Fixed
	in     *Interpreter
}

func (s *InterpreterSuite) SetupTest() {
	s.ctx = context.Background()
	s.states = dialog.NewMemoryStore()
	// 2026-10-15 12:00 local
	s.clock = clock.NewFixed(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	p, err := timeparse.NewDefaultParser("ru", "en")
	s.Require().NoError(err)
	s.in = New(s.states, timeparse.New(moscow, p), s.clock)
}

func TestInterpreterSuite(t *testing.T) {
	suite.Run(t, new(InterpreterSuite))
}

func (s *InterpreterSuite) interpret(owner models.OwnerID, text string) intent.Outcome {
	out, err := s.in.Interpret(s.ctx, owner, text)
	s.Require().NoError(err)
	return out
}

func (s *InterpreterSuite) TestNoteWithTagWhileAwaiting() {
	s.Require().NoError(s.states.Set(s.ctx, 1, dialog.AwaitNote()))

	out := s.interpret(1, "#work finish report")

	s.Equal(intent.CreateNote{Tag: "work", Body: "finish report"}, out.Intent)
	s.Equal(dialog.IdleState(), out.Next)
}

func (s *InterpreterSuite) TestNoteWithoutTagWhileAwaiting() {
	s.Require().NoError(s.states.Set(s.ctx, 1, dialog.AwaitNote()))

	out := s.interpret(1, "finish report")

	s.Equal(intent.Invalid{Reason: intent.ReasonMissingTag, Expect: dialog.AwaitingNoteText}, out.Intent)
	s.Equal(dialog.AwaitNote(), out.Next)
}

func (s *InterpreterSuite) TestTagWithoutBody() {
	s.Require().NoError(s.states.Set(s.ctx, 1, dialog.AwaitNote()))

	out := s.interpret(1, "#work")

	s.Equal(intent.Invalid{Reason: intent.ReasonEmptyNote, Expect: dialog.AwaitingNoteText}, out.Intent)
	s.Equal(dialog.AwaitNote(), out.Next)
}

func (s *InterpreterSuite) TestInterpretDoesNotMutateStore() {
	s.Require().NoError(s.states.Set(s.ctx, 1, dialog.AwaitNote()))

	s.interpret(1, "#work finish report")

	st, err := s.states.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(dialog.AwaitNote(), st)
}

func (s *InterpreterSuite) TestIdleQuickAdd() {
	out := s.interpret(1, "#idea write a blog post")
	s.Equal(intent.CreateNote{Tag: "idea", Body: "write a blog post"}, out.Intent)
	s.Equal(dialog.IdleState(), out.Next)
}

func (s *InterpreterSuite) TestIdleFreeTextIsNoop() {
	out := s.interpret(1, "hello there")
	s.Equal(intent.Noop{}, out.Intent)
	s.Equal(dialog.IdleState(), out.Next)
	s.False(out.Intent.Terminal())
}

func (s *InterpreterSuite) TestReminderAccepted() {
	s.Require().NoError(s.states.Set(s.ctx, 1, dialog.AwaitReminder()))

	out := s.interpret(1, "buy milk - 16.10.2026 09:00")

	s.Require().IsType(intent.CreateReminder{}, out.Intent)
	cr := out.Intent.(intent.CreateReminder)
	s.Equal("buy milk", cr.Body)
	s.Equal(time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC), cr.Due)
	s.Equal(time.Date(2026, 10, 16, 9, 0, 0, 0, moscow), cr.DueLocal)
	s.Equal(dialog.IdleState(), out.Next)
}

func (s *InterpreterSuite) TestReminderFailuresKeepState() {
	tests := []struct {
		name   string
		text   string
		reason intent.Reason
	}{
		{"no separator", "buy milk tomorrow", intent.ReasonMalformed},
		{"empty phrase", "buy milk -", intent.ReasonMalformed},
		{"empty body", "- tomorrow", intent.ReasonMalformed},
		{"gibberish phrase", "buy milk - qwzx", intent.ReasonUnrecognizedTime},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.Require().NoError(s.states.Set(s.ctx, 1, dialog.AwaitReminder()))

			out := s.interpret(1, tt.text)

			s.Equal(intent.Invalid{Reason: tt.reason, Expect: dialog.AwaitingReminderText}, out.Intent)
			s.Equal(dialog.AwaitReminder(), out.Next)
		})
	}
}

func (s *InterpreterSuite) TestEditNoteKeepsTag() {
	target := dialog.Target{ID: "n1", Body: "old body", Tag: "work"}
	s.Require().NoError(s.states.Set(s.ctx, 1, dialog.EditNote(target)))

	out := s.interpret(1, "new body")

	s.Equal(intent.ReplaceNote{OldID: "n1", OldBody: "old body", Tag: "work", NewBody: "new body"}, out.Intent)
	s.Equal(dialog.IdleState(), out.Next)
}

func (s *InterpreterSuite) TestEditNoteReplacesTag() {
	target := dialog.Target{ID: "n1", Body: "old body", Tag: "work"}
	s.Require().NoError(s.states.Set(s.ctx, 1, dialog.EditNote(target)))

	out := s.interpret(1, "#home new body")

	s.Equal(intent.ReplaceNote{OldID: "n1", OldBody: "old body", Tag: "home", NewBody: "new body"}, out.Intent)
}

func (s *InterpreterSuite) TestEditNoteEmpty() {
	target := dialog.Target{ID: "n1", Body: "old body", Tag: "work"}
	s.Require().NoError(s.states.Set(s.ctx, 1, dialog.EditNote(target)))

	for _, text := range []string{"", "   ", "#home"} {
		out := s.interpret(1, text)
		s.Equal(intent.Invalid{Reason: intent.ReasonEmptyNote, Expect: dialog.AwaitingNoteEdit}, out.Intent, text)
		s.Equal(dialog.EditNote(target), out.Next)
	}
}

func (s *InterpreterSuite) TestEditReminder() {
	target := dialog.Target{ID: "r1", Body: "buy milk"}
	s.Require().NoError(s.states.Set(s.ctx, 1, dialog.EditReminder(target)))

	out := s.interpret(1, "buy milk and eggs - tomorrow at 9am")

	s.Require().IsType(intent.ReplaceReminder{}, out.Intent)
	rr := out.Intent.(intent.ReplaceReminder)
	s.Equal("r1", rr.OldID)
	s.Equal("buy milk", rr.OldBody)
	s.Equal("buy milk and eggs", rr.NewBody)
	s.Equal(time.Date(2026, 10, 16, 9, 0, 0, 0, moscow), rr.NewDueLocal)
	s.True(rr.NewDue.Equal(rr.NewDueLocal))
	s.Equal(dialog.IdleState(), out.Next)
}

func (s *InterpreterSuite) TestEditReminderParseFailureKeepsTarget() {
	target := dialog.Target{ID: "r1", Body: "buy milk"}
	s.Require().NoError(s.states.Set(s.ctx, 1, dialog.EditReminder(target)))

	out := s.interpret(1, "buy milk and eggs")

	s.Equal(intent.Invalid{Reason: intent.ReasonMalformed, Expect: dialog.AwaitingReminderEdit}, out.Intent)
	s.Equal(dialog.EditReminder(target), out.Next)
}

func (s *InterpreterSuite) TestCommandsOverridePendingAction() {
	tests := []struct {
		text string
		want intent.Intent
		next dialog.State
	}{
		{"/start", intent.ShowMenu{Menu: intent.MenuMain}, dialog.IdleState()},
		{"Меню", intent.ShowMenu{Menu: intent.MenuMain}, dialog.IdleState()},
		{"menu", intent.ShowMenu{Menu: intent.MenuMain}, dialog.IdleState()},
		{"Добавить заметку", intent.Prompt{For: intent.PromptNoteText}, dialog.AwaitNote()},
		{"Add note", intent.Prompt{For: intent.PromptNoteText}, dialog.AwaitNote()},
		{"Добавить напоминание", intent.Prompt{For: intent.PromptReminderText}, dialog.AwaitReminder()},
		{" add reminder ", intent.Prompt{For: intent.PromptReminderText}, dialog.AwaitReminder()},
	}

	for _, tt := range tests {
		s.Run(tt.text, func() {
			s.Require().NoError(s.states.Set(s.ctx, 1, dialog.EditReminder(dialog.Target{ID: "r1", Body: "x"})))

			out := s.interpret(1, tt.text)

			s.Equal(tt.want, out.Intent)
			s.Equal(tt.next, out.Next)
		})
	}
}

func (s *InterpreterSuite) TestOwnersAreIsolated() {
	s.Require().NoError(s.states.Set(s.ctx, 1, dialog.AwaitReminder()))

	out := s.interpret(2, "buy milk - 16.10.2026 09:00")

	s.Equal(intent.Noop{}, out.Intent)
}

type failingStore struct{ dialog.Store }

func (failingStore) Get(context.Context, models.OwnerID) (dialog.State, error) {
	return dialog.State{}, errors.New("backend down")
}

func TestInterpretStoreError(t *testing.T) {
	p, err := timeparse.NewDefaultParser("en")
	require.NoError(t, err)
	in := New(failingStore{}, timeparse.New(time.UTC, p), nil)

	_, err = in.Interpret(context.Background(), 1, "#a b")
	assert.ErrorContains(t, err, "backend down")
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		text   string
		tag    string
		body   string
		reason intent.Reason
	}{
		{"#work finish report", "work", "finish report", ""},
		{"#work\tfinish", "work", "finish", ""},
		{"##double body", "double", "body", ""},
		{"# spaced body", "", "spaced body", ""},
		{"finish report", "", "", intent.ReasonMissingTag},
		{"#work", "", "", intent.ReasonEmptyNote},
		{"#work   ", "", "", intent.ReasonEmptyNote},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			tag, body, reason := ParseNote(tt.text)
			assert.Equal(t, tt.tag, tag)
			assert.Equal(t, tt.body, body)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func (s *InterpreterSuite) TestAlias() {
	s.in.Alias("  Новая заметка ", CommandAddNote)
	s.in.Alias("", CommandMenu)

	out := s.interpret(1, "новая заметка")
	s.Equal(intent.Prompt{For: intent.PromptNoteText}, out.Intent)

	out = s.interpret(1, "")
	s.Equal(intent.Noop{}, out.Intent)
}
