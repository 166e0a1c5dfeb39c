package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyLimitMiddleware(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.Write(body)
	})

	t.Run("passes a small body through", func(t *testing.T) {
		m := NewBodyLimitMiddleware(0)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"durationSeconds":1500}`))

		m.Handler(echo).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"durationSeconds":1500}`, rec.Body.String())
	})

	t.Run("rejects a declared oversized body", func(t *testing.T) {
		m := NewBodyLimitMiddleware(16)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(strings.Repeat("x", 32)))

		m.Handler(echo).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "Request body too large")
	})

	t.Run("stops a chunked body that crosses the limit", func(t *testing.T) {
		m := NewBodyLimitMiddleware(16)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(strings.Repeat("x", 32)))
		// No declared length, so the early check cannot catch it.
		req.ContentLength = -1

		m.Handler(echo).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("zero size falls back to the default cap", func(t *testing.T) {
		m := NewBodyLimitMiddleware(0)
		assert.Equal(t, int64(DefaultMaxBodySize), m.maxSize)
	})
}
