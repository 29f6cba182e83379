package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/planbot/internal/format"
	"github.com/hray3182/planbot/internal/messaging"
)

// Sender delivers messages through the Telegram Bot API. Replies become a
// resized reply keyboard; an empty non-nil set removes the keyboard and a nil
// set leaves whatever keyboard the user has.
type Sender struct {
	api *tgbotapi.BotAPI
}

func NewSender(api *tgbotapi.BotAPI) *Sender {
	return &Sender{api: api}
}

func (s *Sender) SendMessage(ctx context.Context, userID int64, text string, replies [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parsed := format.ParseMarkdown(text)
	msg := tgbotapi.NewMessage(userID, parsed.Text)
	msg.Entities = parsed.Entities
	switch {
	case replies == nil:
	case len(replies) == 0:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	default:
		msg.ReplyMarkup = keyboard(replies)
	}

	if _, err := s.api.Send(msg); err != nil {
		return classify(err)
	}
	return nil
}

func keyboard(replies [][]string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(replies))
	for _, labels := range replies {
		row := make([]tgbotapi.KeyboardButton, 0, len(labels))
		for _, label := range labels {
			row = append(row, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, row)
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// classify maps "blocked by the user" style API errors to messaging.ErrUnreachable.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", messaging.ErrUnreachable, apiErr.Message)
	}
	return fmt.Errorf("failed to send message: %w", err)
}
