package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &Session{EndTime: now.Add(90 * time.Second)}

	assert.Equal(t, 90, s.Remaining(now))
	assert.Equal(t, 30, s.Remaining(now.Add(time.Minute)))
	assert.Equal(t, 0, s.Remaining(now.Add(90*time.Second)))
	assert.Equal(t, 0, s.Remaining(now.Add(time.Hour)))
}

func TestRemainingTruncatesSubsecond(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &Session{EndTime: now.Add(10*time.Second + 700*time.Millisecond)}
	assert.Equal(t, 10, s.Remaining(now))
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, SessionStatusRunning.IsActive())
	assert.True(t, SessionStatusPaused.IsActive())
	assert.False(t, SessionStatusCompleted.IsActive())
	assert.False(t, SessionStatusFailed.IsActive())

	assert.False(t, SessionStatusRunning.IsTerminal())
	assert.False(t, SessionStatusPaused.IsTerminal())
	assert.True(t, SessionStatusCompleted.IsTerminal())
	assert.True(t, SessionStatusFailed.IsTerminal())
}

func TestFailReasonValid(t *testing.T) {
	assert.True(t, FailReasonTimeout.Valid())
	assert.True(t, FailReasonDistractionOpened.Valid())
	assert.False(t, FailReason("").Valid())
	assert.False(t, FailReason("MONDAY").Valid())
}
