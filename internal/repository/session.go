package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/focuse/focus-server-go/internal/database"
	"github.com/focuse/focus-server-go/internal/model"
)

// ErrDuplicateActive is returned by Create when the partial unique index on
// active sessions rejects a second RUNNING/PAUSED row for the same user.
var ErrDuplicateActive = errors.New("user already has an active session")

// SessionRepository persists focus sessions. All transition writes are
// predicate-guarded: the UPDATE re-asserts the expected pre-state and
// returns (nil, nil) when the predicate no longer matches, so two
// conflicting transitions can never both succeed.
type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindActiveByUserID(ctx context.Context, userID string) (*model.Session, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	MarkPaused(ctx context.Context, id string, timeElapsed, progress int, now time.Time) (*model.Session, error)
	MarkRunning(ctx context.Context, id string, startTime, endTime time.Time) (*model.Session, error)
	MarkCompleted(ctx context.Context, id string, timeElapsed, progress int, now time.Time) (*model.Session, error)
	MarkFailed(ctx context.Context, id string, reason model.FailReason, timeElapsed, progress int, now time.Time) (*model.Session, error)
	FailExpired(ctx context.Context, cutoff time.Time) ([]string, error)
	FindUpdatedSince(ctx context.Context, userID string, since time.Time, limit int) ([]model.Session, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionRepo struct {
	db database.DBTX
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions
		WHERE user_id = $1
		AND status IN ('RUNNING', 'PAUSED')
	`, userID)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (user_id, task_id, status, duration, time_elapsed, start_time, end_time, progress)
		VALUES ($1, $2, 'RUNNING', $3, 0, $4, $5, 0)
		RETURNING *
	`, params.UserID, params.TaskID, params.Duration, params.StartTime, params.EndTime)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateActive
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) MarkPaused(ctx context.Context, id string, timeElapsed, progress int, now time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			status = 'PAUSED',
			time_elapsed = $2,
			progress = $3,
			updated_at = $4
		WHERE id = $1 AND status = 'RUNNING'
		RETURNING *
	`, id, timeElapsed, progress, now)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) MarkRunning(ctx context.Context, id string, startTime, endTime time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			status = 'RUNNING',
			start_time = $2,
			end_time = $3,
			updated_at = $2
		WHERE id = $1 AND status = 'PAUSED'
		RETURNING *
	`, id, startTime, endTime)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) MarkCompleted(ctx context.Context, id string, timeElapsed, progress int, now time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			status = 'COMPLETED',
			time_elapsed = $2,
			progress = $3,
			end_time = $4,
			updated_at = $4
		WHERE id = $1 AND status IN ('RUNNING', 'PAUSED')
		RETURNING *
	`, id, timeElapsed, progress, now)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) MarkFailed(ctx context.Context, id string, reason model.FailReason, timeElapsed, progress int, now time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			status = 'FAILED',
			fail_reason = $2,
			time_elapsed = $3,
			progress = $4,
			failed_at = $5,
			end_time = $5,
			updated_at = $5
		WHERE id = $1 AND status IN ('RUNNING', 'PAUSED')
		RETURNING *
	`, id, reason, timeElapsed, progress, now)
	return HandleNotFound(&session, err)
}

// FailExpired force-fails sessions still marked RUNNING whose deadline
// passed before the cutoff. The status predicate is re-asserted inside the
// UPDATE itself so a session the client completed between any selection and
// this write is left untouched.
func (r *sessionRepo) FailExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, `
		UPDATE sessions SET
			status = 'FAILED',
			fail_reason = 'TIMEOUT',
			time_elapsed = duration,
			progress = 100,
			failed_at = NOW(),
			updated_at = NOW()
		WHERE status = 'RUNNING' AND end_time < $1
		RETURNING id
	`, cutoff)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *sessionRepo) FindUpdatedSince(ctx context.Context, userID string, since time.Time, limit int) ([]model.Session, error) {
	sessions := []model.Session{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at DESC
		LIMIT $3
	`, userID, since, limit)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
