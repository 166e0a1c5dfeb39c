package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/focuse/focus-server-go/internal/model"
	"github.com/focuse/focus-server-go/internal/repository"
)

type stubSessionRepo struct {
	mu      sync.Mutex
	cutoffs []time.Time
	results [][]string
	err     error
}

func (s *stubSessionRepo) FailExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) == 0 {
		return []string{}, nil
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next, nil
}

func (s *stubSessionRepo) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cutoffs)
}

func (s *stubSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}

func (s *stubSessionRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Session, error) {
	return nil, nil
}

func (s *stubSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	return nil, nil
}

func (s *stubSessionRepo) MarkPaused(ctx context.Context, id string, timeElapsed, progress int, now time.Time) (*model.Session, error) {
	return nil, nil
}

func (s *stubSessionRepo) MarkRunning(ctx context.Context, id string, startTime, endTime time.Time) (*model.Session, error) {
	return nil, nil
}

func (s *stubSessionRepo) MarkCompleted(ctx context.Context, id string, timeElapsed, progress int, now time.Time) (*model.Session, error) {
	return nil, nil
}

func (s *stubSessionRepo) MarkFailed(ctx context.Context, id string, reason model.FailReason, timeElapsed, progress int, now time.Time) (*model.Session, error) {
	return nil, nil
}

func (s *stubSessionRepo) FindUpdatedSince(ctx context.Context, userID string, since time.Time, limit int) ([]model.Session, error) {
	return nil, nil
}

func (s *stubSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return s
}

func TestSweepUsesGraceCutoff(t *testing.T) {
	repo := &stubSessionRepo{results: [][]string{{"s1", "s2"}}}
	job := NewSweeperJob(repo, time.Hour, 5*time.Minute)

	before := time.Now()
	job.Sweep()
	after := time.Now()

	assert.Equal(t, 1, repo.calls())
	cutoff := repo.cutoffs[0]
	assert.False(t, cutoff.Before(before.Add(-5*time.Minute)))
	assert.False(t, cutoff.After(after.Add(-5*time.Minute)))
}

func TestSweepSecondRunIsNoop(t *testing.T) {
	repo := &stubSessionRepo{results: [][]string{{"s1"}}}
	job := NewSweeperJob(repo, time.Hour, 5*time.Minute)

	job.Sweep()
	job.Sweep()

	assert.Equal(t, 2, repo.calls())
}

func TestSweepSwallowsErrors(t *testing.T) {
	repo := &stubSessionRepo{err: errors.New("db down")}
	job := NewSweeperJob(repo, time.Hour, 5*time.Minute)

	// Must not panic or propagate; the next scheduled run retries.
	job.Sweep()
	assert.Equal(t, 1, repo.calls())
}

func TestSweeperStartStop(t *testing.T) {
	repo := &stubSessionRepo{}
	job := NewSweeperJob(repo, 10*time.Millisecond, time.Minute)

	job.Start()
	time.Sleep(35 * time.Millisecond)
	job.Stop()

	// Let any in-flight pass finish before snapshotting.
	time.Sleep(10 * time.Millisecond)
	calls := repo.calls()
	assert.GreaterOrEqual(t, calls, 2)

	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, calls, repo.calls())
}
