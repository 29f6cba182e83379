package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler receives inbound user input.
type Handler interface {
	OnTextMessage(ctx context.Context, userID int64, text string)
	OnUnsupportedMedia(ctx context.Context, userID int64)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	handler  Handler
	inflight sync.WaitGroup
	log      *slog.Logger
}

func New(api *tgbotapi.BotAPI, handler Handler) *Bot {
	return &Bot{
		api:     api,
		handler: handler,
		log:     slog.Default().With("component", "bot"),
	}
}

// Start long-polls for updates until ctx is cancelled. Every update is
// handled on its own goroutine.
func (b *Bot) Start(ctx context.Context) error {
	b.log.Info("authorized", "account", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	// Handlers outlive ctx so replies in flight at shutdown can finish.
	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.inflight.Add(1)
			go func() {
				defer b.inflight.Done()
				b.handleUpdate(handlerCtx, update)
			}()
		}
	}
}

// Drain waits up to grace for in-flight updates and reports whether all finished.
func (b *Bot) Drain(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if msg.Chat != nil && !msg.Chat.IsPrivate() {
		b.log.Debug("ignoring non-private chat", "chat_id", msg.Chat.ID)
		return
	}
	Dispatch(ctx, b.handler, msg)
}

// Dispatch routes one inbound message to h.
func Dispatch(ctx context.Context, h Handler, msg *tgbotapi.Message) {
	switch {
	case msg.Text != "":
		h.OnTextMessage(ctx, msg.From.ID, msg.Text)
	case msg.Voice != nil, msg.Audio != nil, msg.VideoNote != nil, msg.Video != nil,
		msg.Photo != nil, msg.Document != nil, msg.Sticker != nil:
		h.OnUnsupportedMedia(ctx, msg.From.ID)
	}
}
