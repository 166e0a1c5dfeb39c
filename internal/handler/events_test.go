package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/focuse/focus-server-go/internal/events"
)

func TestEventsHandlerServeHTTP(t *testing.T) {
	t.Run("returns 401 when no user in context", func(t *testing.T) {
		h := NewEventsHandler(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Unauthorized")
	})
}

func TestEventsHandlerSendEvent(t *testing.T) {
	t.Run("formats an SSE event", func(t *testing.T) {
		h := &EventsHandler{}
		rec := httptest.NewRecorder()

		err := h.sendEvent(rec, rec, "connected", map[string]any{
			"userId": "u1",
		})

		assert.NoError(t, err)
		body := rec.Body.String()
		assert.Contains(t, body, "event: connected\n")
		assert.Contains(t, body, "data: ")
		assert.Contains(t, body, "u1")
	})
}

func TestEventsHandlerSendRawEvent(t *testing.T) {
	t.Run("writes event and data lines", func(t *testing.T) {
		h := &EventsHandler{}
		rec := httptest.NewRecorder()

		err := h.sendRawEvent(rec, rec, events.Event{
			Type: events.TypeSessionUpdated,
			Data: []byte(`{"id":"s1"}`),
		})

		assert.NoError(t, err)
		body := rec.Body.String()
		assert.Contains(t, body, "event: session_updated\n")
		assert.Contains(t, body, `data: {"id":"s1"}`)
	})
}
