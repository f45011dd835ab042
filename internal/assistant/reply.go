package assistant

import (
	"context"

	"github.com/thebtf/notekeeper/internal/i18n"
	"github.com/thebtf/notekeeper/internal/router"
)

// Button is an inline keyboard button carrying a callback token.
type Button struct {
	Text  string
	Token string
}

// Reply is one outgoing chat message.
type Reply struct {
	Text string
	// Buttons are inline keyboard rows attached to the message.
	Buttons [][]Button
	// Keyboard, when set, replaces the persistent reply keyboard.
	Keyboard [][]string
	// Edit asks the transport to replace the message whose button was
	// pressed instead of sending a new one.
	Edit bool
}

// Messenger sends replies into the chat an update came from.
type Messenger interface {
	Send(ctx context.Context, r Reply) error
}

func (s *Service) mainMenuButtons() [][]Button {
	t := s.catalog.Text
	return [][]Button{
		{{t(i18n.ButtonAddNote), router.TokenAddNote}},
		{{t(i18n.ButtonAddReminder), router.TokenAddReminder}},
		{{t(i18n.ButtonNotes), router.TokenNotesMenu}},
		{{t(i18n.ButtonReminders), router.TokenRemindersMenu}},
	}
}

func (s *Service) notesMenuButtons() [][]Button {
	t := s.catalog.Text
	return [][]Button{
		{{t(i18n.ButtonAllTags), router.TokenAllTags}},
		{{t(i18n.ButtonFindNote), router.TokenFindNote}},
		{{t(i18n.ButtonAllNotes), router.TokenAllNotes}},
	}
}

func (s *Service) remindersMenuButtons() [][]Button {
	t := s.catalog.Text
	return [][]Button{
		{{t(i18n.ButtonToday), router.TokenTodayReminders}},
		{{t(i18n.ButtonTomorrow), router.TokenTomorrowReminders}},
		{{t(i18n.ButtonWeek), router.TokenWeekReminders}},
		{{t(i18n.ButtonPast), router.TokenPastReminders}},
	}
}

// ReplyKeyboard is the persistent keyboard shown with the main menu.
func (s *Service) ReplyKeyboard() [][]string {
	t := s.catalog.Text
	return [][]string{
		{t(i18n.ButtonMenu)},
		{t(i18n.ButtonAddNote), t(i18n.ButtonAddReminder)},
	}
}

func (s *Service) itemButtons(editToken, deleteToken string) [][]Button {
	return [][]Button{{
		{s.catalog.Text(i18n.ButtonEdit), editToken},
		{s.catalog.Text(i18n.ButtonDelete), deleteToken},
	}}
}
