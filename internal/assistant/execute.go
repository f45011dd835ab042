package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/notekeeper/internal/i18n"
	"github.com/thebtf/notekeeper/internal/intent"
	"github.com/thebtf/notekeeper/internal/router"
	"github.com/thebtf/notekeeper/internal/storage"
	"github.com/thebtf/notekeeper/internal/timeparse"
	"github.com/thebtf/notekeeper/pkg/models"
)

var invalidMessages = map[intent.Reason]i18n.Key{
	intent.ReasonMissingTag:       i18n.InvalidNoteFormat,
	intent.ReasonEmptyNote:        i18n.InvalidEmptyNote,
	intent.ReasonMalformed:        i18n.InvalidReminder,
	intent.ReasonUnrecognizedTime: i18n.UnrecognizedTime,
	intent.ReasonGone:             i18n.RecordGone,
}

var periodLabels = map[intent.Period]i18n.Key{
	intent.PeriodToday:    i18n.PeriodToday,
	intent.PeriodTomorrow: i18n.PeriodTomorrow,
	intent.PeriodWeek:     i18n.PeriodWeek,
	intent.PeriodPast:     i18n.PeriodPast,
}

// execute applies in and returns the replies to send. callback marks input
// that came from a button press.
func (s *Service) execute(ctx context.Context, owner models.OwnerID, in intent.Intent, callback bool) ([]Reply, error) {
	t := s.catalog.Text

	switch in := in.(type) {
	case intent.CreateNote:
		if err := s.store.InsertNote(ctx, models.NewNote(owner, in.Tag, in.Body)); err != nil {
			return nil, err
		}
		return text(t(i18n.NoteAdded, models.DisplayTag(in.Tag), in.Body)), nil

	case intent.CreateReminder:
		if err := s.store.InsertReminder(ctx, models.NewReminder(owner, in.Due, in.Body)); err != nil {
			return nil, err
		}
		return text(t(i18n.ReminderAdded, in.DueLocal.Format(DisplayLayout), zoneLabel(in.DueLocal), in.Body)), nil

	case intent.ReplaceNote:
		if err := s.store.ReplaceNote(ctx, owner, in.OldID, models.NewNote(owner, in.Tag, in.NewBody)); err != nil {
			return nil, err
		}
		return text(t(i18n.NoteEdited, in.NewBody)), nil

	case intent.ReplaceReminder:
		if err := s.store.ReplaceReminder(ctx, owner, in.OldID, models.NewReminder(owner, in.NewDue, in.NewBody)); err != nil {
			return nil, err
		}
		return text(t(i18n.ReminderEdited, in.NewDueLocal.Format(DisplayLayout), zoneLabel(in.NewDueLocal), in.NewBody)), nil

	case intent.DeleteNote:
		return s.deleteNote(ctx, owner, in, callback)

	case intent.DeleteReminder:
		return s.deleteReminder(ctx, owner, in, callback)

	case intent.Invalid:
		key, ok := invalidMessages[in.Reason]
		if !ok {
			key = i18n.GenericError
		}
		return []Reply{{Text: t(key), Edit: callback && in.Reason == intent.ReasonGone}}, nil

	case intent.Noop:
		if callback {
			return nil, nil
		}
		return text(t(i18n.UnknownInput)), nil

	case intent.ShowMenu:
		return s.menu(in.Menu, callback), nil

	case intent.Prompt:
		return []Reply{{Text: s.promptText(in), Edit: callback}}, nil

	case intent.ListTags:
		return s.listTags(ctx, owner, callback)

	case intent.ListNotes:
		return s.listNotes(ctx, owner, in, callback)

	case intent.ListReminders:
		return s.listReminders(ctx, owner, in, callback)

	default:
		return nil, fmt.Errorf("unsupported intent %T", in)
	}
}

func text(msg string) []Reply {
	return []Reply{{Text: msg}}
}

// zoneLabel renders t's offset as "UTC+03:00".
func zoneLabel(t time.Time) string {
	_, offset := t.Zone()
	return timeparse.FormatOffset(offset)
}

func (s *Service) menu(m intent.Menu, callback bool) []Reply {
	t := s.catalog.Text
	switch m {
	case intent.MenuNotes:
		return []Reply{{Text: t(i18n.NotesMenuTitle), Buttons: s.notesMenuButtons(), Edit: callback}}
	case intent.MenuReminders:
		return []Reply{{Text: t(i18n.RemindersMenuTitle), Buttons: s.remindersMenuButtons(), Edit: callback}}
	default:
		if callback {
			return []Reply{{Text: t(i18n.MainMenuTitle), Buttons: s.mainMenuButtons(), Edit: true}}
		}
		return []Reply{
			{Text: t(i18n.MainMenuTitle), Keyboard: s.ReplyKeyboard()},
			{Text: t(i18n.ReplyKeyboardHint), Buttons: s.mainMenuButtons()},
		}
	}
}

func (s *Service) promptText(p intent.Prompt) string {
	t := s.catalog.Text
	switch p.For {
	case intent.PromptReminderText:
		return t(i18n.PromptReminder)
	case intent.PromptNoteEdit:
		return t(i18n.PromptNoteEdit, p.Target.Body)
	case intent.PromptReminderEdit:
		return t(i18n.PromptReminderEdit, p.Target.Body)
	default:
		return t(i18n.PromptNote)
	}
}

func (s *Service) deleteNote(ctx context.Context, owner models.OwnerID, in intent.DeleteNote, callback bool) ([]Reply, error) {
	body := in.Body
	var (
		n   int64
		err error
	)
	if in.ID != "" {
		note, lookupErr := s.store.NoteByID(ctx, owner, in.ID)
		if errors.Is(lookupErr, storage.ErrNotFound) {
			return []Reply{{Text: s.catalog.Text(i18n.AlreadyDeleted), Edit: callback}}, nil
		}
		if lookupErr != nil {
			return nil, lookupErr
		}
		body = note.Body
		n, err = s.store.DeleteNoteByID(ctx, owner, in.ID)
	} else {
		n, err = s.store.DeleteNote(ctx, owner, in.Body)
	}
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []Reply{{Text: s.catalog.Text(i18n.AlreadyDeleted), Edit: callback}}, nil
	}
	return []Reply{{Text: s.catalog.Text(i18n.NoteDeleted, body), Edit: callback}}, nil
}

func (s *Service) deleteReminder(ctx context.Context, owner models.OwnerID, in intent.DeleteReminder, callback bool) ([]Reply, error) {
	body := in.Body
	var (
		n   int64
		err error
	)
	if in.ID != "" {
		rem, lookupErr := s.store.ReminderByID(ctx, owner, in.ID)
		if errors.Is(lookupErr, storage.ErrNotFound) {
			return []Reply{{Text: s.catalog.Text(i18n.AlreadyDeleted), Edit: callback}}, nil
		}
		if lookupErr != nil {
			return nil, lookupErr
		}
		body = rem.Body
		n, err = s.store.DeleteReminderByID(ctx, owner, in.ID)
	} else {
		n, err = s.store.DeleteReminder(ctx, owner, in.Body)
	}
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []Reply{{Text: s.catalog.Text(i18n.AlreadyDeleted), Edit: callback}}, nil
	}
	return []Reply{{Text: s.catalog.Text(i18n.ReminderDeleted, body), Edit: callback}}, nil
}

func (s *Service) listTags(ctx context.Context, owner models.OwnerID, callback bool) ([]Reply, error) {
	tags, err := s.store.ListTags(ctx, owner)
	if err != nil {
		return nil, err
	}

	var rows [][]Button
	for _, tag := range tags {
		token := router.TagToken(tag)
		if len(token) > router.MaxTokenLen {
			log.Warn().Int64("owner", int64(owner)).Str("tag", tag).Msg("Tag too long for a button; skipped")
			continue
		}
		rows = append(rows, []Button{{Text: models.DisplayTag(tag), Token: token}})
	}
	if len(rows) == 0 {
		return []Reply{{Text: s.catalog.Text(i18n.NoTags), Edit: callback}}, nil
	}
	return []Reply{{Text: s.catalog.Text(i18n.TagsTitle), Buttons: rows, Edit: callback}}, nil
}

func (s *Service) listNotes(ctx context.Context, owner models.OwnerID, in intent.ListNotes, callback bool) ([]Reply, error) {
	tag := ""
	if !in.All {
		tag = in.Tag
	}
	notes, err := s.store.FindNotes(ctx, owner, tag)
	if err != nil {
		return nil, err
	}

	if len(notes) == 0 {
		if tag == "" {
			return []Reply{{Text: s.catalog.Text(i18n.NoNotes), Edit: callback}}, nil
		}
		return []Reply{{Text: s.catalog.Text(i18n.NoNotesForTag, models.DisplayTag(tag)), Edit: callback}}, nil
	}

	replies := make([]Reply, 0, len(notes))
	for _, n := range notes {
		msg := s.catalog.Text(i18n.NoteItem, n.Body)
		if tag != "" {
			msg = s.catalog.Text(i18n.NoteWithTag, models.DisplayTag(n.Tag), n.Body)
		}
		replies = append(replies, Reply{
			Text:    msg,
			Buttons: s.itemButtons(router.EditNoteToken(n.ID), router.DeleteNoteToken(n.ID)),
		})
	}
	return replies, nil
}

func (s *Service) listReminders(ctx context.Context, owner models.OwnerID, in intent.ListReminders, callback bool) ([]Reply, error) {
	w, err := PeriodWindow(in.Period, s.clock.Now(), s.loc)
	if err != nil {
		return nil, err
	}

	var reminders []*models.Reminder
	if w.Start.IsZero() {
		reminders, err = s.store.FindRemindersBefore(ctx, owner, w.End)
	} else {
		reminders, err = s.store.FindRemindersInRange(ctx, owner, w.Start, w.End)
	}
	if err != nil {
		return nil, err
	}

	label := s.catalog.Text(periodLabels[in.Period])
	if len(reminders) == 0 {
		return []Reply{{Text: s.catalog.Text(i18n.NoReminders, label), Edit: callback}}, nil
	}

	replies := make([]Reply, 0, len(reminders))
	for _, r := range reminders {
		replies = append(replies, Reply{
			Text:    s.catalog.Text(i18n.ReminderItem, label, r.DueAt.In(s.loc).Format(DisplayLayout), r.Body),
			Buttons: s.itemButtons(router.EditReminderToken(r.ID), router.DeleteReminderToken(r.ID)),
		})
	}
	return replies, nil
}
