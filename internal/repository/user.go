package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/focuse/focus-server-go/internal/database"
	"github.com/focuse/focus-server-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error)
	// ApplyCompletion bumps the forest/streak aggregates for one completed
	// session. The streak arithmetic runs in SQL against the stored
	// last_session_date so two devices completing on the same day do not
	// double-count the streak.
	ApplyCompletion(ctx context.Context, userID string, focusSeconds int, sessionDate time.Time) (*model.User, error)
	FindUpdatedSince(ctx context.Context, userID string, since time.Time) (*model.User, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UserRepository
}

type userRepo struct {
	db database.DBTX
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE token_hash = $1
	`, tokenHash)
	return HandleNotFound(&user, err)
}

func (r *userRepo) ApplyCompletion(ctx context.Context, userID string, focusSeconds int, sessionDate time.Time) (*model.User, error) {
	day := sessionDate.Truncate(24 * time.Hour)
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		UPDATE users SET
			total_focus_seconds = total_focus_seconds + $2,
			sessions_completed = sessions_completed + 1,
			trees_planted = trees_planted + 1,
			current_streak = CASE
				WHEN last_session_date = $3::date THEN current_streak
				WHEN last_session_date = $3::date - 1 THEN current_streak + 1
				ELSE 1
			END,
			longest_streak = GREATEST(longest_streak, CASE
				WHEN last_session_date = $3::date THEN current_streak
				WHEN last_session_date = $3::date - 1 THEN current_streak + 1
				ELSE 1
			END),
			last_session_date = $3::date,
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, userID, focusSeconds, day)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindUpdatedSince(ctx context.Context, userID string, since time.Time) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1 AND updated_at > $2
	`, userID, since)
	return HandleNotFound(&user, err)
}
