package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hray3182/planbot/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeModel(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

var localNow = time.Date(2026, 10, 17, 10, 30, 0, 0, time.UTC)

func TestParse_Found(t *testing.T) {
	srv := fakeModel(t, `{"found":true,"date":"2026-10-18","time":"15:00","description":"Meeting"}`, http.StatusOK)
	c := New("key", srv.URL, "test-model")

	res, err := c.Parse(context.Background(), "meeting tomorrow at 3pm", localNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC), res.At)
	assert.Equal(t, "Meeting", res.Description)
}

func TestParse_NotFound(t *testing.T) {
	srv := fakeModel(t, `{"found":false,"date":"","time":"","description":""}`, http.StatusOK)
	c := New("key", srv.URL, "test-model")

	_, err := c.Parse(context.Background(), "hello there", localNow)
	assert.ErrorIs(t, err, parser.ErrNoMatch)
}

func TestParse_BadDate(t *testing.T) {
	srv := fakeModel(t, `{"found":true,"date":"tomorrow","time":"15:00","description":"Meeting"}`, http.StatusOK)
	c := New("key", srv.URL, "test-model")

	_, err := c.Parse(context.Background(), "meeting tomorrow", localNow)
	assert.ErrorIs(t, err, parser.ErrNoMatch)
}

func TestParse_APIError(t *testing.T) {
	srv := fakeModel(t, "", http.StatusInternalServerError)
	c := New("key", srv.URL, "test-model")

	_, err := c.Parse(context.Background(), "meeting", localNow)
	require.Error(t, err)
	assert.False(t, errors.Is(err, parser.ErrNoMatch))
}
