package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/focuse/focus-server-go/internal/errors"
	"github.com/focuse/focus-server-go/internal/model"
	"github.com/focuse/focus-server-go/internal/repository"
)

const (
	EntitySessions = "sessions"
	EntityTasks    = "tasks"
	EntityUser     = "user"
)

type SyncRequest struct {
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
	Entities     []string   `json:"entities,omitempty"`
}

// SyncResponse carries the deltas plus the server timestamp the client must
// persist as its next cursor. The client's own clock never becomes a
// cursor; that is what keeps multi-device sync immune to clock skew.
type SyncResponse struct {
	Sessions  []model.Session `json:"sessions,omitempty"`
	Tasks     []model.Task    `json:"tasks,omitempty"`
	User      *model.User     `json:"user,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	FullSync  bool            `json:"fullSync"`
}

type SyncService struct {
	sessionRepo repository.SessionRepository
	taskRepo    repository.TaskRepository
	userRepo    repository.UserRepository
	maxRows     int
	fullAfter   time.Duration
	now         func() time.Time
}

func NewSyncService(
	sessionRepo repository.SessionRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	maxRows int,
	fullAfter time.Duration,
) *SyncService {
	return &SyncService{
		sessionRepo: sessionRepo,
		taskRepo:    taskRepo,
		userRepo:    userRepo,
		maxRows:     maxRows,
		fullAfter:   fullAfter,
		now:         time.Now,
	}
}

// Sync returns entities updated after the client's cursor. A missing,
// too-old, or future cursor forces a full sync instead of erroring: a
// malformed cursor must never produce a silently incomplete result.
func (s *SyncService) Sync(ctx context.Context, userID string, req SyncRequest) (*SyncResponse, error) {
	now := s.now()
	since, fullSync := s.resolveCursor(req.LastSyncTime, now)

	resp := &SyncResponse{
		Timestamp: now,
		FullSync:  fullSync,
	}

	if wants(req.Entities, EntitySessions) {
		sessions, err := s.sessionRepo.FindUpdatedSince(ctx, userID, since, s.maxRows)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		resp.Sessions = sessions
	}

	if wants(req.Entities, EntityTasks) {
		tasks, err := s.taskRepo.FindUpdatedSince(ctx, userID, since, s.maxRows)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		resp.Tasks = tasks
	}

	if wants(req.Entities, EntityUser) {
		user, err := s.fetchUser(ctx, userID, since, fullSync)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		resp.User = user
	}

	log.Debug().
		Str("userId", userID).
		Bool("fullSync", fullSync).
		Int("sessions", len(resp.Sessions)).
		Int("tasks", len(resp.Tasks)).
		Msg("sync delta served")

	return resp, nil
}

// resolveCursor decides between an incremental and a full sync. The zero
// time as "since" matches every row, which is what a full sync is.
func (s *SyncService) resolveCursor(lastSyncTime *time.Time, now time.Time) (time.Time, bool) {
	if lastSyncTime == nil {
		return time.Time{}, true
	}
	if lastSyncTime.After(now) {
		return time.Time{}, true
	}
	if now.Sub(*lastSyncTime) > s.fullAfter {
		return time.Time{}, true
	}
	return *lastSyncTime, false
}

func (s *SyncService) fetchUser(ctx context.Context, userID string, since time.Time, fullSync bool) (*model.User, error) {
	if fullSync {
		return s.userRepo.FindByID(ctx, userID)
	}
	return s.userRepo.FindUpdatedSince(ctx, userID, since)
}

func wants(entities []string, name string) bool {
	if len(entities) == 0 {
		return true
	}
	for _, e := range entities {
		if e == name {
			return true
		}
	}
	return false
}
