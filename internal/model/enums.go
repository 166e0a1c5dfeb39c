package model

type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "RUNNING"
	SessionStatusPaused    SessionStatus = "PAUSED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFailed    SessionStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are permitted.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// IsActive reports whether the session still occupies the user's single
// active-session slot.
func (s SessionStatus) IsActive() bool {
	return s == SessionStatusRunning || s == SessionStatusPaused
}

type FailReason string

const (
	FailReasonTimeout           FailReason = "TIMEOUT"
	FailReasonUserGaveUp        FailReason = "USER_GAVE_UP"
	FailReasonAppBackgrounded   FailReason = "APP_BACKGROUNDED"
	FailReasonAppCrashed        FailReason = "APP_CRASHED"
	FailReasonDistractionOpened FailReason = "DISTRACTION_OPENED"
)

func (r FailReason) Valid() bool {
	switch r {
	case FailReasonTimeout, FailReasonUserGaveUp, FailReasonAppBackgrounded,
		FailReasonAppCrashed, FailReasonDistractionOpened:
		return true
	}
	return false
}
