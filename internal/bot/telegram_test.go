package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stock-analyst/internal/errors"
)

func TestClientSendMessage(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":77,"chat":{"id":5},"text":"hi"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "TOKEN", time.Second, "")
	msg, err := c.SendMessage(context.Background(), 5, "<b>hi</b>", MainMenu([]string{"AAPL"}))
	require.NoError(t, err)

	assert.Equal(t, 77, msg.MessageID)
	assert.Equal(t, int64(5), msg.Chat.ID)
	assert.Equal(t, "HTML", payload["parse_mode"])
	assert.Equal(t, float64(5), payload["chat_id"])
	markup, ok := payload["reply_markup"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, markup, "inline_keyboard")
}

func TestClientGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, float64(10), req["offset"])
		assert.Equal(t, float64(30), req["timeout"])
		fmt.Fprint(w, `{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"chat":{"id":9},"text":"/start"}},
			{"update_id":11,"callback_query":{"id":"cb1","from":{"id":9},"message":{"message_id":2,"chat":{"id":9}},"data":"an:AAPL:1h"}}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "T", 30*time.Second, "")
	updates, err := c.GetUpdates(context.Background(), 10, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, "an:AAPL:1h", updates[1].CallbackQuery.Data)
	assert.Equal(t, 2, updates[1].CallbackQuery.Message.MessageID)
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 3","parameters":{"retry_after":3}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "T", time.Second, "")
	err := c.AnswerCallbackQuery(context.Background(), "cb", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 3, apiErr.RetryAfter)
	assert.Equal(t, "answerCallbackQuery", apiErr.Method)
}

func TestClientEditNotModifiedIsIgnored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "T", time.Second, "")
	assert.NoError(t, c.EditMessageText(context.Background(), 1, 2, "same", nil))
}

func TestClientErrorHidesToken(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "SECRET", time.Second, "")
	_, err := c.SendMessage(context.Background(), 1, "x", nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET")
}
