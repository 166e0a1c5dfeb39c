package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuse/focus-server-go/internal/model"
	"github.com/focuse/focus-server-go/internal/repository"
	"github.com/focuse/focus-server-go/internal/util"
)

type stubUserRepo struct {
	user *model.User // returned when the hash matches
	hash string
}

func (s *stubUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}

func (s *stubUserRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	if s.user != nil && tokenHash == s.hash {
		return s.user, nil
	}
	return nil, nil
}

func (s *stubUserRepo) ApplyCompletion(ctx context.Context, userID string, focusSeconds int, sessionDate time.Time) (*model.User, error) {
	return nil, nil
}

func (s *stubUserRepo) FindUpdatedSince(ctx context.Context, userID string, since time.Time) (*model.User, error) {
	return nil, nil
}

func (s *stubUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository {
	return s
}

func authFixture() (*AuthMiddleware, http.Handler) {
	repo := &stubUserRepo{user: &model.User{ID: "u1"}, hash: util.HashToken("good-token")}
	mw := NewAuthMiddleware(repo)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mw, next
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("rejects a missing token", func(t *testing.T) {
		mw, next := authFixture()
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/active", nil)
		rec := httptest.NewRecorder()
		mw.Handler(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		mw, next := authFixture()
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/active", nil)
		req.Header.Set("Authorization", "Bearer wrong-token")
		rec := httptest.NewRecorder()
		mw.Handler(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("places the user on the context for a valid bearer token", func(t *testing.T) {
		user := &model.User{ID: "u1"}
		repo := &stubUserRepo{user: user, hash: util.HashToken("good-token")}
		mw := NewAuthMiddleware(repo)

		var seen *model.User
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetUser(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/active", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		mw.Handler(next).ServeHTTP(rec, req)

		require.NotNil(t, seen)
		assert.Equal(t, "u1", seen.ID)
	})

	t.Run("accepts the token query parameter for event streams", func(t *testing.T) {
		user := &model.User{ID: "u1"}
		repo := &stubUserRepo{user: user, hash: util.HashToken("good-token")}
		mw := NewAuthMiddleware(repo)

		var seen *model.User
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetUser(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/events?token=good-token", nil)
		rec := httptest.NewRecorder()
		mw.Handler(next).ServeHTTP(rec, req)

		require.NotNil(t, seen)
	})
}

func TestGetUserWithoutAuth(t *testing.T) {
	assert.Nil(t, GetUser(context.Background()))
}
