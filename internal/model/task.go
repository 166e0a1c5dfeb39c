package model

import "time"

// Task is the minimal task projection the session core needs: sessions may
// link to one, and tasks participate in delta sync. Task CRUD itself lives
// outside this service.
type Task struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"userId"`
	Title        string    `db:"title" json:"title"`
	Completed    bool      `db:"completed" json:"completed"`
	FocusSeconds int       `db:"focus_seconds" json:"focusSeconds"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
