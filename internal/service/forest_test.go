package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/focuse/focus-server-go/internal/database"
	"github.com/focuse/focus-server-go/internal/model"
)

// fakeTxRunner executes the transaction body directly; the repo mocks
// return themselves from WithTx so no real transaction is needed.
type fakeTxRunner struct {
	calls int
	err   error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(&sqlx.Tx{})
}

func completedSession(taskID *string) *model.Session {
	return &model.Session{
		ID:          "s1",
		UserID:      "u1",
		TaskID:      taskID,
		Status:      model.SessionStatusCompleted,
		Duration:    1500,
		TimeElapsed: 1500,
		EndTime:     time.Date(2026, 3, 1, 9, 25, 0, 0, time.UTC),
	}
}

func TestSessionFinalized(t *testing.T) {
	t.Run("applies user and task aggregates in one transaction", func(t *testing.T) {
		taskID := "t1"
		session := completedSession(&taskID)

		userRepo := new(mockUserRepo)
		userRepo.On("ApplyCompletion", mock.Anything, "u1", 1500, session.EndTime).
			Return(&model.User{ID: "u1", TreesPlanted: 3, CurrentStreak: 2}, nil)
		taskRepo := new(mockTaskRepo)
		taskRepo.On("AddFocusSeconds", mock.Anything, "t1", 1500).Return(nil)

		runner := &fakeTxRunner{}
		svc := NewForestService(runner, userRepo, taskRepo)
		svc.SessionFinalized(context.Background(), session)

		assert.Equal(t, 1, runner.calls)
		userRepo.AssertExpectations(t)
		taskRepo.AssertExpectations(t)
	})

	t.Run("skips the task write for a free session", func(t *testing.T) {
		session := completedSession(nil)

		userRepo := new(mockUserRepo)
		userRepo.On("ApplyCompletion", mock.Anything, "u1", 1500, session.EndTime).
			Return(&model.User{ID: "u1"}, nil)
		taskRepo := new(mockTaskRepo)

		svc := NewForestService(&fakeTxRunner{}, userRepo, taskRepo)
		svc.SessionFinalized(context.Background(), session)

		taskRepo.AssertNotCalled(t, "AddFocusSeconds", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed session touches nothing", func(t *testing.T) {
		session := completedSession(nil)
		session.Status = model.SessionStatusFailed

		runner := &fakeTxRunner{}
		svc := NewForestService(runner, new(mockUserRepo), new(mockTaskRepo))
		svc.SessionFinalized(context.Background(), session)

		assert.Equal(t, 0, runner.calls)
	})

	t.Run("aggregate error aborts before the task write and is swallowed", func(t *testing.T) {
		taskID := "t1"
		session := completedSession(&taskID)

		userRepo := new(mockUserRepo)
		userRepo.On("ApplyCompletion", mock.Anything, "u1", 1500, session.EndTime).
			Return(nil, errors.New("db down"))
		taskRepo := new(mockTaskRepo)

		svc := NewForestService(&fakeTxRunner{}, userRepo, taskRepo)
		// Must not panic or propagate.
		svc.SessionFinalized(context.Background(), session)

		taskRepo.AssertNotCalled(t, "AddFocusSeconds", mock.Anything, mock.Anything, mock.Anything)
	})
}
