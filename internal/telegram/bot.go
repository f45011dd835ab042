// Package telegram connects the assistant to the Telegram Bot API using long
// polling.
package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/thebtf/notekeeper/internal/assistant"
	"github.com/thebtf/notekeeper/internal/metrics"
	"github.com/thebtf/notekeeper/internal/textnorm"
	"github.com/thebtf/notekeeper/pkg/models"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler processes updates.
type Handler interface {
	HandleText(ctx context.Context, owner models.OwnerID, text string, out assistant.Messenger) error
	HandleCallback(ctx context.Context, owner models.OwnerID, token string, out assistant.Messenger) error
}

// Config holds transport settings.
type Config struct {
	// SendRate is the sustained outgoing request rate per second. Telegram
	// allows about 30 messages per second across chats.
	SendRate float64
	// SendBurst is the limiter bucket size.
	SendBurst int
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int
}

// Bot receives updates and sends replies and notifications.
type Bot struct {
	api     API
	handler Handler
	limiter *rate.Limiter
	metrics *metrics.Collector
	timeout int

	// queues holds the not yet started updates of every owner that has a
	// drain worker running.
	qmu    sync.Mutex
	queues map[models.OwnerID][]tgbotapi.Update
	wg     sync.WaitGroup
}

// Connect authenticates token against the Bot API.
func Connect(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = debug
	log.Info().Str("bot", api.Self.UserName).Msg("Authorized on Telegram")
	return api, nil
}

// New creates a Bot. m may be nil.
func New(api API, handler Handler, cfg Config, m *metrics.Collector) *Bot {
	if cfg.SendRate <= 0 {
		cfg.SendRate = 25
	}
	if cfg.SendBurst <= 0 {
		cfg.SendBurst = 5
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60
	}
	return &Bot{
		api:     api,
		handler: handler,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst),
		metrics: m,
		timeout: cfg.PollTimeout,
		queues:  make(map[models.OwnerID][]tgbotapi.Update),
	}
}

// Run polls for updates until ctx is cancelled, then waits for in-flight
// handlers. Updates of one owner are handled one at a time in the order they
// were received; different owners are handled concurrently.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := b.api.GetUpdatesChan(u)

	log.Info().Msg("Telegram polling started")
	defer func() {
		b.api.StopReceivingUpdates()
		b.wg.Wait()
		log.Info().Msg("Telegram polling stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.enqueue(ctx, upd)
		}
	}
}

func ownerOf(upd tgbotapi.Update) (models.OwnerID, bool) {
	switch {
	case upd.Message != nil && upd.Message.From != nil:
		return models.OwnerID(upd.Message.From.ID), true
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		return models.OwnerID(upd.CallbackQuery.From.ID), true
	}
	return 0, false
}

// enqueue appends upd to its owner's queue and starts a drain worker when the
// owner has none.
func (b *Bot) enqueue(ctx context.Context, upd tgbotapi.Update) {
	owner, ok := ownerOf(upd)
	if !ok {
		return
	}

	b.qmu.Lock()
	q, running := b.queues[owner]
	b.queues[owner] = append(q, upd)
	b.qmu.Unlock()
	if running {
		return
	}

	b.wg.Add(1)
	go b.drain(ctx, owner)
}

// drain handles owner's queued updates in order and exits once the queue is
// empty.
func (b *Bot) drain(ctx context.Context, owner models.OwnerID) {
	defer b.wg.Done()
	for {
		b.qmu.Lock()
		q := b.queues[owner]
		if len(q) == 0 {
			delete(b.queues, owner)
			b.qmu.Unlock()
			return
		}
		upd := q[0]
		q[0] = tgbotapi.Update{}
		b.queues[owner] = q[1:]
		b.qmu.Unlock()

		b.dispatch(ctx, upd)
	}
}

func (b *Bot) dispatch(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("update", upd.UpdateID).Msg("Update handler panicked")
		}
	}()

	switch {
	case upd.Message != nil && upd.Message.From != nil && !textnorm.IsBlank(upd.Message.Text):
		msg := upd.Message
		conv := &conversation{bot: b, chatID: msg.Chat.ID}
		if err := b.handler.HandleText(ctx, models.OwnerID(msg.From.ID), msg.Text, conv); err != nil {
			log.Warn().Err(err).Int64("owner", msg.From.ID).Msg("Text update failed")
		}

	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		cq := upd.CallbackQuery
		conv := &conversation{bot: b}
		if cq.Message != nil {
			conv.chatID = cq.Message.Chat.ID
			conv.messageID = cq.Message.MessageID
		} else {
			conv.chatID = cq.From.ID
		}
		if err := b.handler.HandleCallback(ctx, models.OwnerID(cq.From.ID), cq.Data, conv); err != nil {
			log.Warn().Err(err).Int64("owner", cq.From.ID).Str("token", cq.Data).Msg("Callback update failed")
		}
		// Telegram shows a spinner on the button until the query is answered.
		if err := b.request(ctx, "callback_ack", tgbotapi.NewCallback(cq.ID, "")); err != nil {
			log.Debug().Err(err).Msg("Callback acknowledgement failed")
		}
	}
}

// Notify sends text to owner's private chat.
func (b *Bot) Notify(ctx context.Context, owner models.OwnerID, text string) error {
	return b.send(ctx, "notification", tgbotapi.NewMessage(int64(owner), text))
}

func (b *Bot) wait(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := b.limiter.Wait(ctx)
	return time.Since(start), err
}

func (b *Bot) send(ctx context.Context, kind string, c tgbotapi.Chattable) error {
	waited, err := b.wait(ctx)
	if err == nil {
		_, err = b.api.Send(c)
	}
	b.metrics.RecordSend(ctx, kind, waited, err)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", kind, err)
	}
	return nil
}

func (b *Bot) request(ctx context.Context, kind string, c tgbotapi.Chattable) error {
	waited, err := b.wait(ctx)
	if err == nil {
		_, err = b.api.Request(c)
	}
	b.metrics.RecordSend(ctx, kind, waited, err)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", kind, err)
	}
	return nil
}
