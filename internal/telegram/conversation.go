package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/thebtf/notekeeper/internal/assistant"
)

// conversation renders assistant replies into the chat an update came from.
type conversation struct {
	bot       *Bot
	chatID    int64
	messageID int // message carrying the pressed button, 0 for text updates
}

func (c *conversation) Send(ctx context.Context, r assistant.Reply) error {
	if r.Edit && c.messageID != 0 && r.Keyboard == nil {
		edit := tgbotapi.NewEditMessageText(c.chatID, c.messageID, r.Text)
		if len(r.Buttons) > 0 {
			markup := inlineKeyboard(r.Buttons)
			edit.ReplyMarkup = &markup
		}
		return c.bot.send(ctx, "edit", edit)
	}

	msg := tgbotapi.NewMessage(c.chatID, r.Text)
	switch {
	case len(r.Buttons) > 0:
		msg.ReplyMarkup = inlineKeyboard(r.Buttons)
	case len(r.Keyboard) > 0:
		msg.ReplyMarkup = replyKeyboard(r.Keyboard)
	}
	return c.bot.send(ctx, "message", msg)
}

func inlineKeyboard(rows [][]assistant.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Token))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func replyKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	out := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, text := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(text))
		}
		out = append(out, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	kb := tgbotapi.NewReplyKeyboard(out...)
	kb.ResizeKeyboard = true
	return kb
}
