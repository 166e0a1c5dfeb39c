package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/focuse/focus-server-go/internal/audit"
	apperrors "github.com/focuse/focus-server-go/internal/errors"
	"github.com/focuse/focus-server-go/internal/events"
	"github.com/focuse/focus-server-go/internal/model"
	"github.com/focuse/focus-server-go/internal/repository"
)

// CompletionHook receives each session exactly once when it reaches a
// terminal state through a user request. Implementations own their failure
// handling; a hook error never rolls back or blocks the transition.
type CompletionHook interface {
	SessionFinalized(ctx context.Context, session *model.Session)
}

type SessionService struct {
	sessionRepo repository.SessionRepository
	taskRepo    repository.TaskRepository
	broker      *events.Broker
	hook        CompletionHook
	maxDuration time.Duration
	now         func() time.Time
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	taskRepo repository.TaskRepository,
	broker *events.Broker,
	hook CompletionHook,
	maxDuration time.Duration,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		taskRepo:    taskRepo,
		broker:      broker,
		hook:        hook,
		maxDuration: maxDuration,
		now:         time.Now,
	}
}

// Create starts a new RUNNING session. A user may hold at most one session
// in RUNNING or PAUSED state; the lookup here catches the common case and
// the partial unique index on active sessions closes the race window
// between check and insert.
func (s *SessionService) Create(ctx context.Context, userID string, taskID *string, durationMinutes int) (*model.Session, error) {
	if durationMinutes <= 0 {
		return nil, apperrors.InvalidInput("duration", "must be a positive number of minutes")
	}
	duration := time.Duration(durationMinutes) * time.Minute
	if duration > s.maxDuration {
		return nil, apperrors.InvalidInput("duration", "exceeds the maximum session length")
	}

	if taskID != nil {
		task, err := s.taskRepo.FindByID(ctx, *taskID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if task == nil || task.UserID != userID {
			return nil, apperrors.NotFound("Task")
		}
	}

	active, err := s.sessionRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if active != nil {
		return nil, apperrors.Conflict("an active session already exists")
	}

	now := s.now()
	session, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		UserID:    userID,
		TaskID:    taskID,
		Duration:  int(duration / time.Second),
		StartTime: now,
		EndTime:   now.Add(duration),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateActive) {
			return nil, apperrors.Conflict("an active session already exists")
		}
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("userId", userID).
		Int("duration", session.Duration).
		Time("endTime", session.EndTime).
		Msg("session started")
	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionCreate,
		UserID:    userID,
		SessionID: session.ID,
		Details:   map[string]interface{}{"duration": session.Duration},
	})
	s.publish(ctx, events.TypeSessionUpdated, session)

	return session, nil
}

// Pause freezes a RUNNING session, banking the elapsed time derived from
// the stored deadline. Only the server clock and the stored end_time
// participate; the client's idea of elapsed time is never consulted.
func (s *SessionService) Pause(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	session, err := s.load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusRunning {
		return nil, transitionError(session.Status)
	}

	now := s.now()
	elapsed := s.elapsedWhileRunning(session, now)
	updated, err := s.sessionRepo.MarkPaused(ctx, sessionID, elapsed, progressOf(elapsed, session.Duration), now)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		// Predicate no longer matched: another device or the sweeper won.
		return nil, apperrors.InvalidState("session is no longer running")
	}

	log.Info().
		Str("sessionId", sessionID).
		Int("timeElapsed", updated.TimeElapsed).
		Msg("session paused")
	audit.Log(ctx, audit.Event{Type: audit.EventSessionPause, UserID: userID, SessionID: sessionID})
	s.publish(ctx, events.TypeSessionUpdated, updated)

	return updated, nil
}

// Resume recomputes the absolute deadline from the banked elapsed time. A
// session whose full duration was consumed while paused is not resumable.
func (s *SessionService) Resume(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	session, err := s.load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusPaused {
		return nil, transitionError(session.Status)
	}

	remaining := session.Duration - session.TimeElapsed
	if remaining <= 0 {
		return nil, apperrors.InvalidState("session has no remaining time")
	}

	now := s.now()
	updated, err := s.sessionRepo.MarkRunning(ctx, sessionID, now, now.Add(time.Duration(remaining)*time.Second))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		return nil, apperrors.InvalidState("session is no longer paused")
	}

	log.Info().
		Str("sessionId", sessionID).
		Time("endTime", updated.EndTime).
		Msg("session resumed")
	audit.Log(ctx, audit.Event{Type: audit.EventSessionResume, UserID: userID, SessionID: sessionID})
	s.publish(ctx, events.TypeSessionUpdated, updated)

	return updated, nil
}

// Complete finalizes a RUNNING or PAUSED session. The client may report an
// actual duration; it is honored only when plausible, otherwise the
// server-computed value wins.
func (s *SessionService) Complete(ctx context.Context, sessionID, userID string, actualDuration *int) (*model.Session, error) {
	session, err := s.load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, apperrors.InvalidState("this session already ended")
	}

	now := s.now()
	elapsed := s.finalElapsed(session, actualDuration, now)
	updated, err := s.sessionRepo.MarkCompleted(ctx, sessionID, elapsed, progressOf(elapsed, session.Duration), now)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		return nil, apperrors.InvalidState("this session already ended")
	}

	log.Info().
		Str("sessionId", sessionID).
		Int("timeElapsed", updated.TimeElapsed).
		Msg("session completed")
	audit.Log(ctx, audit.Event{Type: audit.EventSessionComplete, UserID: userID, SessionID: sessionID})
	s.publish(ctx, events.TypeSessionCompleted, updated)
	s.finalize(ctx, updated)

	return updated, nil
}

// Fail moves a RUNNING or PAUSED session to FAILED with the given reason.
// A second fail or complete against a terminal session returns
// INVALID_STATE rather than silently succeeding, so a client can tell
// "raced with another device" apart from success.
func (s *SessionService) Fail(ctx context.Context, sessionID, userID string, reason model.FailReason) (*model.Session, error) {
	if !reason.Valid() {
		return nil, apperrors.InvalidInput("reason", "unknown failure reason")
	}

	session, err := s.load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, apperrors.InvalidState("this session already ended")
	}

	now := s.now()
	elapsed := s.finalElapsed(session, nil, now)
	updated, err := s.sessionRepo.MarkFailed(ctx, sessionID, reason, elapsed, progressOf(elapsed, session.Duration), now)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if updated == nil {
		return nil, apperrors.InvalidState("this session already ended")
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("reason", string(reason)).
		Msg("session failed")
	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionFail,
		UserID:    userID,
		SessionID: sessionID,
		Details:   map[string]interface{}{"reason": string(reason)},
	})
	s.publish(ctx, events.TypeSessionFailed, updated)
	s.finalize(ctx, updated)

	return updated, nil
}

// GetActive returns the user's RUNNING or PAUSED session, or nil when
// there is none. Clients call this on startup to restore an in-flight
// timer after a crash or reinstall.
func (s *SessionService) GetActive(ctx context.Context, userID string) (*model.Session, error) {
	session, err := s.sessionRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return session, nil
}

// Get is the ownership-checked read backing client resyncs.
func (s *SessionService) Get(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	return s.load(ctx, sessionID, userID)
}

func (s *SessionService) load(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if session.UserID != userID {
		return nil, apperrors.Forbidden("session belongs to another user")
	}
	return session, nil
}

// elapsedWhileRunning derives cumulative elapsed seconds from the stored
// absolute deadline. The result never decreases below the banked value and
// never exceeds the planned duration.
func (s *SessionService) elapsedWhileRunning(session *model.Session, now time.Time) int {
	elapsed := session.Duration - session.Remaining(now)
	if elapsed < session.TimeElapsed {
		elapsed = session.TimeElapsed
	}
	if elapsed > session.Duration {
		elapsed = session.Duration
	}
	return elapsed
}

func (s *SessionService) finalElapsed(session *model.Session, actualDuration *int, now time.Time) int {
	if actualDuration != nil {
		actual := *actualDuration
		if actual > 0 && actual <= session.Duration && actual >= session.TimeElapsed {
			return actual
		}
		log.Warn().
			Str("sessionId", session.ID).
			Int("actualDuration", actual).
			Msg("implausible actual duration, using server-computed elapsed")
	}
	if session.Status == model.SessionStatusRunning {
		return s.elapsedWhileRunning(session, now)
	}
	return session.TimeElapsed
}

func (s *SessionService) finalize(ctx context.Context, session *model.Session) {
	if s.hook == nil {
		return
	}
	s.hook.SessionFinalized(ctx, session)
}

func (s *SessionService) publish(ctx context.Context, eventType string, session *model.Session) {
	if s.broker == nil {
		return
	}
	event, err := events.SessionEvent(eventType, session)
	if err == nil {
		err = s.broker.Publish(ctx, session.UserID, event)
	}
	if err != nil {
		log.Warn().Err(err).Str("sessionId", session.ID).Msg("failed to publish session event")
	}
}

func transitionError(status model.SessionStatus) *apperrors.AppError {
	if status.IsTerminal() {
		return apperrors.InvalidState("this session already ended")
	}
	return apperrors.InvalidState("transition not allowed from " + string(status))
}

func progressOf(elapsed, duration int) int {
	if duration <= 0 {
		return 0
	}
	p := int(math.Round(float64(elapsed) / float64(duration) * 100))
	if p > 100 {
		p = 100
	}
	return p
}
