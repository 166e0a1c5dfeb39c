package model

import "time"

// Session is one timed focus interval owned by a user. While RUNNING the
// row stores the absolute wall-clock deadline in EndTime, never a relative
// countdown; TimeElapsed is only authoritative while the session is not
// RUNNING.
type Session struct {
	ID          string        `db:"id" json:"id"`
	UserID      string        `db:"user_id" json:"userId"`
	TaskID      *string       `db:"task_id" json:"taskId,omitempty"`
	Status      SessionStatus `db:"status" json:"status"`
	Duration    int           `db:"duration" json:"duration"`
	TimeElapsed int           `db:"time_elapsed" json:"timeElapsed"`
	StartTime   time.Time     `db:"start_time" json:"startTime"`
	EndTime     time.Time     `db:"end_time" json:"endTime"`
	Progress    int           `db:"progress" json:"progress"`
	FailReason  *FailReason   `db:"fail_reason" json:"failReason,omitempty"`
	FailedAt    *time.Time    `db:"failed_at" json:"failedAt,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// Remaining returns whole seconds left on the deadline at the given
// instant, never negative. Meaningful only while RUNNING.
func (s *Session) Remaining(now time.Time) int {
	rem := s.EndTime.Sub(now)
	if rem <= 0 {
		return 0
	}
	return int(rem / time.Second)
}

type CreateSessionParams struct {
	UserID    string
	TaskID    *string
	Duration  int
	StartTime time.Time
	EndTime   time.Time
}
