package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/focuse/focus-server-go/internal/database"
	"github.com/focuse/focus-server-go/internal/model"
)

type TaskRepository interface {
	FindByID(ctx context.Context, id string) (*model.Task, error)
	FindUpdatedSince(ctx context.Context, userID string, since time.Time, limit int) ([]model.Task, error)
	AddFocusSeconds(ctx context.Context, id string, seconds int) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) TaskRepository
}

type taskRepo struct {
	db database.DBTX
}

func NewTaskRepository(db *sqlx.DB) TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) WithTx(tx *sqlx.Tx) TaskRepository {
	return &taskRepo{db: tx}
}

func (r *taskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.GetContext(ctx, &task, `
		SELECT * FROM tasks WHERE id = $1
	`, id)
	return HandleNotFound(&task, err)
}

func (r *taskRepo) FindUpdatedSince(ctx context.Context, userID string, since time.Time, limit int) ([]model.Task, error) {
	tasks := []model.Task{}
	err := r.db.SelectContext(ctx, &tasks, `
		SELECT * FROM tasks
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at DESC
		LIMIT $3
	`, userID, since, limit)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepo) AddFocusSeconds(ctx context.Context, id string, seconds int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET
			focus_seconds = focus_seconds + $2,
			updated_at = NOW()
		WHERE id = $1
	`, id, seconds)
	return err
}
