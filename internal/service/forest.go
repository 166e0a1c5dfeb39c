package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/focuse/focus-server-go/internal/database"
	"github.com/focuse/focus-server-go/internal/model"
	"github.com/focuse/focus-server-go/internal/repository"
)

// TxRunner runs a function inside a database transaction. *database.DB
// satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// ForestService applies the downstream effects of a finalized session:
// forest/streak aggregates on the user row and focus time on the linked
// task. Both writes commit in one transaction so the task total can never
// drift ahead of the user aggregates. It runs after the transition is
// committed and its failures are logged, never surfaced, so a broken
// aggregate can not block or roll back a state change.
type ForestService struct {
	db       TxRunner
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
}

func NewForestService(db TxRunner, userRepo repository.UserRepository, taskRepo repository.TaskRepository) *ForestService {
	return &ForestService{
		db:       db,
		userRepo: userRepo,
		taskRepo: taskRepo,
	}
}

var _ CompletionHook = (*ForestService)(nil)

func (f *ForestService) SessionFinalized(ctx context.Context, session *model.Session) {
	if session.Status != model.SessionStatusCompleted {
		// A failed session plants no tree and extends no streak.
		log.Debug().
			Str("sessionId", session.ID).
			Str("status", string(session.Status)).
			Msg("no aggregates for unsuccessful session")
		return
	}

	var user *model.User
	err := f.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		user, err = f.userRepo.WithTx(tx).ApplyCompletion(ctx, session.UserID, session.TimeElapsed, session.EndTime)
		if err != nil {
			return err
		}
		if session.TaskID != nil {
			return f.taskRepo.WithTx(tx).AddFocusSeconds(ctx, *session.TaskID, session.TimeElapsed)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).
			Str("sessionId", session.ID).
			Str("userId", session.UserID).
			Msg("failed to apply completion aggregates")
		return
	}

	if user != nil {
		log.Info().
			Str("userId", user.ID).
			Int("treesPlanted", user.TreesPlanted).
			Int("currentStreak", user.CurrentStreak).
			Msg("forest aggregates updated")
	}
}
