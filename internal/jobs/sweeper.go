package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/focuse/focus-server-go/internal/audit"
	"github.com/focuse/focus-server-go/internal/repository"
)

const sweepTimeout = 30 * time.Second

// SweeperJob is the backstop for crashed or disconnected clients: any
// session still RUNNING whose deadline passed more than the grace period
// ago is force-failed with reason TIMEOUT. Without it, an abandoned session
// would never reach a terminal state and the forest/streak aggregates that
// assume every session resolves would drift.
type SweeperJob struct {
	sessionRepo repository.SessionRepository
	interval    time.Duration
	grace       time.Duration
	done        chan struct{}
}

func NewSweeperJob(sessionRepo repository.SessionRepository, interval, grace time.Duration) *SweeperJob {
	return &SweeperJob{
		sessionRepo: sessionRepo,
		interval:    interval,
		grace:       grace,
		done:        make(chan struct{}),
	}
}

func (j *SweeperJob) Start() {
	go j.run()
	log.Info().
		Dur("interval", j.interval).
		Dur("grace", j.grace).
		Msg("session sweeper started")
}

func (j *SweeperJob) Stop() {
	close(j.done)
	log.Info().Msg("session sweeper stopped")
}

func (j *SweeperJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs one pass. The cutoff tolerates the normal resync cadence and
// short connectivity gaps; the repository re-asserts the RUNNING predicate
// inside the bulk update, so a session the client completed concurrently is
// not clobbered. Errors are logged and the next scheduled run retries.
func (j *SweeperJob) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	cutoff := time.Now().Add(-j.grace)
	ids, err := j.sessionRepo.FailExpired(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep stuck sessions")
		return
	}

	if len(ids) > 0 {
		log.Info().
			Int("count", len(ids)).
			Strs("sessionIds", ids).
			Msg("swept stuck sessions")
		for _, id := range ids {
			audit.Log(ctx, audit.Event{
				Type:      audit.EventSessionSwept,
				SessionID: id,
				Details:   map[string]interface{}{"reason": "TIMEOUT"},
			})
		}
	}
}
