package messaging

import (
	"context"
	"sync"
)

// Message is one delivery captured by Recorder.
type Message struct {
	UserID  int64
	Text    string
	Replies [][]string
}

// Recorder is an in-memory Sender. It keeps every message it was asked to
// deliver and can be told to fail for specific users.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	failures map[int64]error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{failures: make(map[int64]error)}
}

// FailFor makes every send to userID return err. A nil err clears it.
func (r *Recorder) FailFor(userID int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, userID)
		return
	}
	r.failures[userID] = err
}

func (r *Recorder) SendMessage(_ context.Context, userID int64, text string, replies [][]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failures[userID]; ok {
		return err
	}
	r.messages = append(r.messages, Message{UserID: userID, Text: text, Replies: replies})
	return nil
}

// Messages returns a copy of everything delivered so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// For returns the messages delivered to one user.
func (r *Recorder) For(userID int64) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message to userID, and false if none was sent.
func (r *Recorder) Last(userID int64) (Message, bool) {
	msgs := r.For(userID)
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// Reset drops all captured messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
