package model

import "time"

// User carries the auth principal (token hash) and the aggregate counters
// the forest/streak views read. The counters are bumped by the completion
// hook and served to clients through delta sync.
type User struct {
	ID                string     `db:"id" json:"id"`
	TokenHash         string     `db:"token_hash" json:"-"`
	Email             *string    `db:"email" json:"email,omitempty"`
	TotalFocusSeconds int        `db:"total_focus_seconds" json:"totalFocusSeconds"`
	SessionsCompleted int        `db:"sessions_completed" json:"sessionsCompleted"`
	TreesPlanted      int        `db:"trees_planted" json:"treesPlanted"`
	CurrentStreak     int        `db:"current_streak" json:"currentStreak"`
	LongestStreak     int        `db:"longest_streak" json:"longestStreak"`
	LastSessionDate   *time.Time `db:"last_session_date" json:"lastSessionDate,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
}
