package timer

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/focuse/focus-server-go/internal/config"
	"github.com/focuse/focus-server-go/internal/model"
)

// SessionSource provides the server-authoritative session state a
// reconciler corrects itself against. *Client implements it over REST.
type SessionSource interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
}

// State is the view the UI renders: a smooth local countdown plus the
// offline and drift signals. It is derived, never persisted.
type State struct {
	RemainingSeconds int
	ProgressPercent  int
	Status           model.SessionStatus
	IsCompleted      bool
	IsOffline        bool
	SyncWarning      bool
}

type Options struct {
	TickInterval     time.Duration
	ResyncInterval   time.Duration
	DriftCorrection  time.Duration // above this the server value replaces the local one
	DriftWarning     time.Duration // above this a transient warning is surfaced
	WarningHold      time.Duration // how long the warning stays up
	OnState          func(State)
	OnComplete       func()
	Now              func() time.Time
}

func (o *Options) applyDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = config.LocalTickInterval
	}
	if o.ResyncInterval <= 0 {
		o.ResyncInterval = config.ResyncInterval
	}
	if o.DriftCorrection <= 0 {
		o.DriftCorrection = config.DriftCorrectionThreshold
	}
	if o.DriftWarning <= 0 {
		o.DriftWarning = config.DriftWarningThreshold
	}
	if o.WarningHold <= 0 {
		o.WarningHold = config.DriftWarningDuration
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Reconciler keeps one session's local countdown eventually consistent
// with the server. It is owned by whoever created it: no global registry,
// all intervals die with Stop, and no callback fires after Stop returns.
type Reconciler struct {
	source SessionSource
	opts   Options

	mu             sync.Mutex
	session        *model.Session // last known authoritative state
	state          State
	completedFired bool
	resyncPending  bool
	warningUntil   time.Time
	stopped        bool

	stopOnce sync.Once
	done     chan struct{}
}

func New(session *model.Session, source SessionSource, opts Options) *Reconciler {
	opts.applyDefaults()
	r := &Reconciler{
		source:  source,
		opts:    opts,
		session: session,
		done:    make(chan struct{}),
	}
	r.state = r.computeLocked(opts.Now())
	return r
}

// Run drives the two independent timers: the 1 Hz local tick for
// responsiveness and the slower resync against the server. The resync runs
// off the loop goroutine so a slow network call never stalls the countdown.
// Run returns when ctx is cancelled or Stop is called.
func (r *Reconciler) Run(ctx context.Context) {
	tick := time.NewTicker(r.opts.TickInterval)
	defer tick.Stop()
	resync := time.NewTicker(r.opts.ResyncInterval)
	defer resync.Stop()

	// Resync immediately on start to pick up anything missed while the
	// view was not mounted.
	go r.Resync(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-tick.C:
			if r.running() {
				r.Tick()
			}
		case <-resync.C:
			if r.running() {
				go r.Resync(ctx)
			}
		}
	}
}

// Stop tears the reconciler down. Idempotent; after it returns neither
// OnState nor OnComplete will fire again.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		close(r.done)
	})
}

// Snapshot returns the current derived state.
func (r *Reconciler) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Tick recomputes the countdown from the last known deadline. When the
// deadline is reached the completion callback fires exactly once; later
// ticks against an expired deadline are no-ops for the callback.
func (r *Reconciler) Tick() {
	r.mu.Lock()
	now := r.opts.Now()
	r.state = r.computeLocked(now)
	fireComplete := false
	if r.state.Status == model.SessionStatusRunning && r.state.RemainingSeconds == 0 && !r.completedFired {
		r.completedFired = true
		r.state.IsCompleted = true
		fireComplete = true
	}
	r.emitLocked(fireComplete)
}

// Resync fetches the authoritative session and corrects local state. At
// most one resync is in flight at a time; a trigger while one is pending
// is a no-op rather than queued. The result is fenced by the local status:
// if the session went terminal locally while the request was in flight,
// the response is discarded.
func (r *Reconciler) Resync(ctx context.Context) {
	r.mu.Lock()
	if r.stopped || r.resyncPending || r.state.Status.IsTerminal() {
		r.mu.Unlock()
		return
	}
	r.resyncPending = true
	sessionID := r.session.ID
	r.mu.Unlock()

	server, err := r.source.GetSession(ctx, sessionID)

	r.mu.Lock()
	r.resyncPending = false

	if err != nil {
		if IsNetworkError(err) {
			// The local tick is the fallback of record while offline.
			r.state.IsOffline = true
			r.emitLocked(false)
			return
		}
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("resync failed")
		r.mu.Unlock()
		return
	}

	r.state.IsOffline = false

	if r.completedFired || r.state.Status.IsTerminal() {
		// Stale response: the local state already went terminal.
		r.emitLocked(false)
		return
	}

	now := r.opts.Now()
	fireComplete := false

	switch {
	case server.Status.IsTerminal():
		r.session = server
		r.state = r.computeLocked(now)
		if server.Status == model.SessionStatusCompleted && !r.completedFired {
			r.completedFired = true
			fireComplete = true
		}

	case server.Status == model.SessionStatusRunning:
		drift := diffSeconds(server.Remaining(now), r.session.Remaining(now))
		if drift > int(r.opts.DriftCorrection/time.Second) {
			// Server always wins on meaningful drift.
			r.session = server
			r.state = r.computeLocked(now)
			if drift > int(r.opts.DriftWarning/time.Second) {
				r.state.SyncWarning = true
				r.warningUntil = now.Add(r.opts.WarningHold)
			}
			log.Debug().
				Str("sessionId", sessionID).
				Int("driftSeconds", drift).
				Msg("drift corrected from server")
		} else {
			// Clock/latency noise; keep the local value, adopt the row
			// for its metadata, drop any lingering warning.
			server.EndTime = r.session.EndTime
			r.session = server
			r.state = r.computeLocked(now)
			r.state.SyncWarning = false
			r.warningUntil = time.Time{}
		}

	default: // PAUSED
		r.session = server
		r.state = r.computeLocked(now)
	}

	r.emitLocked(fireComplete)
}

// SetConnectivity feeds the platform connectivity signal. Reconnecting
// triggers an immediate resync instead of waiting out the resync interval.
func (r *Reconciler) SetConnectivity(ctx context.Context, isConnected bool) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.state.IsOffline = !isConnected
	r.emitLocked(false)
	if isConnected {
		go r.Resync(ctx)
	}
}

// SetAppActive feeds the foreground/background signal. Returning to the
// foreground resyncs immediately: the local tick did not run while the app
// was suspended and the countdown may be far behind the deadline.
func (r *Reconciler) SetAppActive(ctx context.Context, isActive bool) {
	if !isActive {
		return
	}
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if !stopped {
		go r.Resync(ctx)
	}
}

func (r *Reconciler) running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.stopped && r.state.Status == model.SessionStatusRunning
}

// computeLocked derives State from the authoritative session at the given
// instant. Caller holds r.mu.
func (r *Reconciler) computeLocked(now time.Time) State {
	s := r.session
	st := State{
		Status:      s.Status,
		IsOffline:   r.state.IsOffline,
		SyncWarning: r.state.SyncWarning && now.Before(r.warningUntil),
		IsCompleted: r.state.IsCompleted,
	}

	switch s.Status {
	case model.SessionStatusRunning:
		st.RemainingSeconds = s.Remaining(now)
	case model.SessionStatusPaused:
		st.RemainingSeconds = s.Duration - s.TimeElapsed
		if st.RemainingSeconds < 0 {
			st.RemainingSeconds = 0
		}
	case model.SessionStatusCompleted:
		st.IsCompleted = true
	case model.SessionStatusFailed:
		st.RemainingSeconds = 0
	}

	if s.Duration > 0 {
		st.ProgressPercent = int(math.Round(float64(s.Duration-st.RemainingSeconds) / float64(s.Duration) * 100))
	}
	if s.Status.IsTerminal() {
		st.ProgressPercent = s.Progress
	}

	return st
}

// emitLocked invokes the callbacks and releases r.mu. Callbacks run
// without the lock so they may call back into the reconciler, and they
// are suppressed entirely once Stop has been called.
func (r *Reconciler) emitLocked(fireComplete bool) {
	if r.stopped {
		r.mu.Unlock()
		return
	}
	state := r.state
	onState := r.opts.OnState
	onComplete := r.opts.OnComplete
	r.mu.Unlock()

	if onState != nil {
		onState(state)
	}
	if fireComplete && onComplete != nil {
		onComplete()
	}
}

func diffSeconds(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
