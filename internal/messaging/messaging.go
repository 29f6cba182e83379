// Package messaging defines the outbound delivery contract the planner core
// depends on. Transports implement Sender.
package messaging

import (
	"context"
	"errors"
)

// ErrUnreachable is returned by a Sender when the recipient can no longer be
// messaged (blocked the bot, deleted the chat). Callers log it and move on.
var ErrUnreachable = errors.New("messaging: recipient unreachable")

// Sender delivers text to a user.
type Sender interface {
	// SendMessage sends text to userID. replies, when non-empty, are suggested
	// quick-reply rows rendered by the transport; the text of a tapped reply
	// comes back as an ordinary inbound message.
	SendMessage(ctx context.Context, userID int64, text string, replies [][]string) error
}
