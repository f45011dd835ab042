// Package i18n holds the user-facing message catalog. The built-in catalog
// is Russian; a YAML file may override individual messages.
package i18n

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Key names one message.
type Key string

const (
	MainMenuTitle      Key = "main_menu_title"
	ReplyKeyboardHint  Key = "reply_keyboard_hint"
	NotesMenuTitle     Key = "notes_menu_title"
	RemindersMenuTitle Key = "reminders_menu_title"

	ButtonMenu        Key = "button_menu"
	ButtonAddNote     Key = "button_add_note"
	ButtonAddReminder Key = "button_add_reminder"
	ButtonNotes       Key = "button_notes"
	ButtonReminders   Key = "button_reminders"
	ButtonAllTags     Key = "button_all_tags"
	ButtonFindNote    Key = "button_find_note"
	ButtonAllNotes    Key = "button_all_notes"
	ButtonToday       Key = "button_today"
	ButtonTomorrow    Key = "button_tomorrow"
	ButtonWeek        Key = "button_week"
	ButtonPast        Key = "button_past"
	ButtonEdit        Key = "button_edit"
	ButtonDelete      Key = "button_delete"

	PromptNote         Key = "prompt_note"
	PromptReminder     Key = "prompt_reminder"
	PromptNoteEdit     Key = "prompt_note_edit"
	PromptReminderEdit Key = "prompt_reminder_edit"

	NoteAdded       Key = "note_added"
	NoteEdited      Key = "note_edited"
	NoteDeleted     Key = "note_deleted"
	ReminderAdded   Key = "reminder_added"
	ReminderEdited  Key = "reminder_edited"
	ReminderDeleted Key = "reminder_deleted"
	AlreadyDeleted  Key = "already_deleted"

	TagsTitle     Key = "tags_title"
	NoTags        Key = "no_tags"
	NoteWithTag   Key = "note_with_tag"
	NoteItem      Key = "note_item"
	NoNotesForTag Key = "no_notes_for_tag"
	NoNotes       Key = "no_notes"
	ReminderItem  Key = "reminder_item"
	NoReminders   Key = "no_reminders"

	PeriodToday    Key = "period_today"
	PeriodTomorrow Key = "period_tomorrow"
	PeriodWeek     Key = "period_week"
	PeriodPast     Key = "period_past"

	InvalidNoteFormat Key = "invalid_note_format"
	InvalidEmptyNote  Key = "invalid_empty_note"
	InvalidReminder   Key = "invalid_reminder_format"
	UnrecognizedTime  Key = "unrecognized_time"
	RecordGone        Key = "record_gone"
	UnknownInput      Key = "unknown_input"
	GenericError      Key = "generic_error"
)

var defaults = map[Key]string{
	MainMenuTitle:      "Выберите действие:",
	ReplyKeyboardHint:  "Или используйте меню ниже:",
	NotesMenuTitle:     "Меню заметок:",
	RemindersMenuTitle: "Меню напоминаний:",

	ButtonMenu:        "Меню",
	ButtonAddNote:     "Добавить заметку",
	ButtonAddReminder: "Добавить напоминание",
	ButtonNotes:       "Заметки",
	ButtonReminders:   "Напоминания",
	ButtonAllTags:     "Все теги заметок",
	ButtonFindNote:    "Поиск по тегу",
	ButtonAllNotes:    "Все заметки",
	ButtonToday:       "Напоминания на сегодня",
	ButtonTomorrow:    "Напоминания на завтра",
	ButtonWeek:        "Напоминания на неделю",
	ButtonPast:        "Прошлые напоминания",
	ButtonEdit:        "✏️",
	ButtonDelete:      "❌",

	PromptNote:         "Введите заметку в формате: #тег текст заметки",
	PromptReminder:     "Введите напоминание в формате: текст напоминания - дата и время",
	PromptNoteEdit:     "Редактируем заметку: %s\nВведите новый текст заметки:",
	PromptReminderEdit: "Редактируем напоминание: %s\nВведите новый текст и время:",

	NoteAdded:       "Заметка добавлена с тегом %s:\n%s",
	NoteEdited:      "Заметка отредактирована:\n%s",
	NoteDeleted:     "Заметка удалена: %s",
	ReminderAdded:   "Напоминание добавлено на %s (%s):\n%s",
	ReminderEdited:  "Напоминание отредактировано на %s (%s):\n%s",
	ReminderDeleted: "Напоминание удалено: %s",
	AlreadyDeleted:  "Запись уже удалена.",

	TagsTitle:     "Все теги заметок:",
	NoTags:        "У вас нет заметок с тегами.",
	NoteWithTag:   "Тег: %s\nЗаметка: %s",
	NoteItem:      "Заметка: %s",
	NoNotesForTag: "Заметок с тегом %s не найдено.",
	NoNotes:       "У вас нет заметок.",
	ReminderItem:  "%s %s:\n%s",
	NoReminders:   "У вас нет %s.",

	PeriodToday:    "напоминаний на сегодня",
	PeriodTomorrow: "напоминаний на завтра",
	PeriodWeek:     "напоминаний на неделю",
	PeriodPast:     "прошедших напоминаний",

	InvalidNoteFormat: "Неверный формат. Используйте #тег текст заметки",
	InvalidEmptyNote:  "Текст заметки не может быть пустым. Используйте #тег текст заметки",
	InvalidReminder:   "Неверный формат. Используйте: текст напоминания - дата и время",
	UnrecognizedTime:  "Не удалось распознать дату и время. Попробуйте еще раз.",
	RecordGone:        "Запись не найдена. Возможно, она уже удалена.",
	UnknownInput:      "Не понимаю. Нажмите «Меню», чтобы выбрать действие.",
	GenericError:      "Произошла ошибка. Попробуйте еще раз.",
}

var verbRe = regexp.MustCompile(`%[sdv]`)

// Catalog resolves message keys to text.
type Catalog struct {
	messages map[Key]string
}

// File is the YAML override structure.
type File struct {
	Messages map[Key]string `yaml:"messages"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	m := make(map[Key]string, len(defaults))
	for k, v := range defaults {
		m[k] = v
	}
	return &Catalog{messages: m}
}

// Load returns the built-in catalog overlaid with the YAML file at path.
// A missing file or empty path yields the defaults. Unknown keys and
// overrides whose placeholders differ from the default are rejected.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for k, v := range f.Messages {
		def, ok := defaults[k]
		if !ok {
			return nil, fmt.Errorf("%s: unknown message key %q", path, k)
		}
		if !samePlaceholders(def, v) {
			return nil, fmt.Errorf("%s: message %q must keep placeholders %v", path, k, verbRe.FindAllString(def, -1))
		}
		c.messages[k] = v
	}
	return c, nil
}

func samePlaceholders(a, b string) bool {
	pa, pb := verbRe.FindAllString(a, -1), verbRe.FindAllString(b, -1)
	if len(pa) != len(pb) {
		return false
	}
	for i := range pa {
		if pa[i] != pb[i] {
			return false
		}
	}
	return true
}

// Text returns the message for key formatted with args.
func (c *Catalog) Text(key Key, args ...any) string {
	msg, ok := c.messages[key]
	if !ok {
		return string(key)
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Keys returns every known key in sorted order.
func Keys() []Key {
	keys := make([]Key, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
