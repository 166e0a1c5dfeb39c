package middleware

import (
	"net/http"
)

// DefaultMaxBodySize caps request bodies at 64KB. Every write endpoint
// takes a small JSON payload: session transitions and sync cursors are
// well under 1KB, so anything near the cap is a misbehaving client.
const DefaultMaxBodySize = 64 << 10

// BodyLimitMiddleware rejects oversized request bodies before they reach
// a handler's decoder.
type BodyLimitMiddleware struct {
	maxSize int64
}

func NewBodyLimitMiddleware(maxSize int64) *BodyLimitMiddleware {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	return &BodyLimitMiddleware{maxSize: maxSize}
}

func (m *BodyLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reject early when the client declares the size up front.
		if r.Body != nil && r.ContentLength > m.maxSize {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "Request body too large",
			})
			return
		}

		// Chunked uploads carry no Content-Length; MaxBytesReader stops
		// them once the limit is crossed mid-read.
		r.Body = http.MaxBytesReader(w, r.Body, m.maxSize)
		next.ServeHTTP(w, r)
	})
}
