package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/planbot/internal/format"
	"github.com/hray3182/planbot/internal/messaging"
	"github.com/hray3182/planbot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "123:test"

type fakeTelegram struct {
	mu      sync.Mutex
	sent    []url.Values
	blocked map[string]bool
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Planner","username":"planner_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.blocked[r.PostForm.Get("chat_id")] {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
			return
		}
		f.sent = append(f.sent, r.PostForm)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func newTestSender(t *testing.T) (*Sender, *fakeTelegram) {
	t.Helper()
	fake := &fakeTelegram{blocked: map[string]bool{"13": true}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	api, err := tgbotapi.NewBotAPIWithClient(token, srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)
	return NewSender(api), fake
}

func TestSender_SendMessage(t *testing.T) {
	s, fake := newTestSender(t)

	err := s.SendMessage(context.Background(), 42, "**🔔 Reminder**\n\nmeeting", [][]string{{"➕ Add plan", "📅 My plans"}})
	require.NoError(t, err)

	require.Len(t, fake.sent, 1)
	form := fake.sent[0]
	assert.Equal(t, "42", form.Get("chat_id"))
	assert.Equal(t, "🔔 Reminder\n\nmeeting", form.Get("text"))

	var entities []tgbotapi.MessageEntity
	require.NoError(t, json.Unmarshal([]byte(form.Get("entities")), &entities))
	require.Len(t, entities, 1)
	assert.Equal(t, "bold", entities[0].Type)
	assert.Equal(t, 0, entities[0].Offset)
	assert.Equal(t, 11, entities[0].Length)

	var markup tgbotapi.ReplyKeyboardMarkup
	require.NoError(t, json.Unmarshal([]byte(form.Get("reply_markup")), &markup))
	assert.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.Keyboard, 1)
	assert.Equal(t, "📅 My plans", markup.Keyboard[0][1].Text)
}

func TestSender_KeyboardVariants(t *testing.T) {
	s, fake := newTestSender(t)

	require.NoError(t, s.SendMessage(context.Background(), 42, "plain", nil))
	require.NoError(t, s.SendMessage(context.Background(), 42, "bare", [][]string{}))

	require.Len(t, fake.sent, 2)
	assert.Empty(t, fake.sent[0].Get("reply_markup"))
	assert.Contains(t, fake.sent[1].Get("reply_markup"), `"remove_keyboard":true`)
}

func TestSender_DescriptionSentVerbatim(t *testing.T) {
	s, fake := newTestSender(t)
	p := &models.Plan{
		OccursAt:    time.Date(2026, time.October, 17, 15, 0, 0, 0, time.UTC),
		Description: "run `make test` then **ship**",
	}

	err := s.SendMessage(context.Background(), 42, format.Reminder(p, p.OccursAt), nil)
	require.NoError(t, err)

	require.Len(t, fake.sent, 1)
	assert.Contains(t, fake.sent[0].Get("text"), "📝 run `make test` then **ship**\n")
	var entities []tgbotapi.MessageEntity
	require.NoError(t, json.Unmarshal([]byte(fake.sent[0].Get("entities")), &entities))
	require.Len(t, entities, 1)
	assert.Equal(t, "bold", entities[0].Type)
}

func TestSender_Blocked(t *testing.T) {
	s, _ := newTestSender(t)

	err := s.SendMessage(context.Background(), 13, "hello", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, messaging.ErrUnreachable)
}

func TestSender_CancelledContext(t *testing.T) {
	s, fake := newTestSender(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.SendMessage(ctx, 42, "hello", nil), context.Canceled)
	assert.Empty(t, fake.sent)
}

type recordingHandler struct {
	texts []string
	media int
}

func (h *recordingHandler) OnTextMessage(_ context.Context, _ int64, text string) {
	h.texts = append(h.texts, text)
}

func (h *recordingHandler) OnUnsupportedMedia(context.Context, int64) {
	h.media++
}

func TestDispatch(t *testing.T) {
	h := &recordingHandler{}
	from := &tgbotapi.User{ID: 42}

	Dispatch(context.Background(), h, &tgbotapi.Message{From: from, Text: "/start"})
	Dispatch(context.Background(), h, &tgbotapi.Message{From: from, Voice: &tgbotapi.Voice{FileID: "v"}})
	Dispatch(context.Background(), h, &tgbotapi.Message{From: from, Photo: []tgbotapi.PhotoSize{{FileID: "p"}}})
	Dispatch(context.Background(), h, &tgbotapi.Message{From: from})

	assert.Equal(t, []string{"/start"}, h.texts)
	assert.Equal(t, 2, h.media)
}

type blockingHandler struct {
	release chan struct{}
}

func (h *blockingHandler) OnTextMessage(context.Context, int64, string) {
	<-h.release
}

func (h *blockingHandler) OnUnsupportedMedia(context.Context, int64) {}

func TestDrain(t *testing.T) {
	h := &blockingHandler{release: make(chan struct{})}
	b := New(nil, h)
	assert.True(t, b.Drain(time.Millisecond))

	update := tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42},
		Chat: &tgbotapi.Chat{ID: 42, Type: "private"},
		Text: "/plans",
	}}
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.handleUpdate(context.Background(), update)
	}()

	assert.False(t, b.Drain(20*time.Millisecond))

	close(h.release)
	assert.True(t, b.Drain(time.Second))
}
