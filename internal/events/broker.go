package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/focuse/focus-server-go/internal/model"
	redisclient "github.com/focuse/focus-server-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
)

// Event types published on a user's session channel.
const (
	TypeSessionUpdated   = "session_updated"
	TypeSessionCompleted = "session_completed"
	TypeSessionFailed    = "session_failed"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SessionEvent wraps a session transition for delivery to the user's other
// devices, so a second device can react before its next resync poll.
func SessionEvent(eventType string, session *model.Session) (Event, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: data}, nil
}

type Subscriber struct {
	UserID string
	Events chan Event
	Done   chan struct{}
}

// stream tracks one user's subscribers together with the done channel that
// stops the Redis relay goroutine when the last subscriber leaves.
type stream struct {
	subs map[*Subscriber]bool
	done chan struct{}
}

// Broker fans session transition events out to connected devices. Events
// travel through Redis pub/sub so every server process sees them regardless
// of which process handled the transition. With a nil Redis client the
// broker runs process-local, which single-process deployments and tests use.
type Broker struct {
	redis   *redisclient.Client
	streams map[string]*stream // keyed by userID
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		streams: make(map[string]*stream),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(userID string) *Subscriber {
	sub := &Subscriber{
		UserID: userID,
		Events: make(chan Event, 100),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	st, ok := b.streams[userID]
	if !ok {
		st = &stream{
			subs: make(map[*Subscriber]bool),
			done: make(chan struct{}),
		}
		b.streams[userID] = st
		if b.redis != nil {
			go b.subscribeToRedis(userID, st.done)
		}
	}
	st.subs[sub] = true
	count := len(st.subs)
	b.mu.Unlock()

	log.Info().
		Str("userId", userID).
		Int("deviceCount", count).
		Msg("event subscriber added")

	return sub
}

func (b *Broker) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.streams[sub.UserID]
	if !ok {
		return
	}
	if !st.subs[sub] {
		return
	}
	delete(st.subs, sub)
	close(sub.Done)

	if len(st.subs) == 0 {
		// Last device for this user is gone; stop the Redis relay so a
		// later Subscribe starts exactly one fresh goroutine.
		close(st.done)
		delete(b.streams, sub.UserID)
	}

	log.Info().
		Str("userId", sub.UserID).
		Int("deviceCount", len(st.subs)).
		Msg("event subscriber removed")
}

func (b *Broker) Publish(ctx context.Context, userID string, event Event) error {
	if b.redis == nil {
		b.broadcast(userID, event)
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.SessionChannel(userID)
	return b.redis.Publish(ctx, channel, data).Err()
}

func (b *Broker) subscribeToRedis(userID string, done <-chan struct{}) {
	channel := redisclient.SessionChannel(userID)
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("userId", userID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case <-done:
			log.Debug().
				Str("userId", userID).
				Str("channel", channel).
				Msg("redis pubsub released")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(userID, event)
		}
	}
}

func (b *Broker) broadcast(userID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := b.streams[userID]
	if st == nil {
		return
	}
	for sub := range st.subs {
		select {
		case sub.Events <- event:
		default:
			log.Warn().
				Str("userId", userID).
				Msg("subscriber event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, st := range b.streams {
		for sub := range st.subs {
			close(sub.Done)
		}
	}
	b.streams = make(map[string]*stream)
}

func (b *Broker) SubscriberCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := b.streams[userID]
	if st == nil {
		return 0
	}
	return len(st.subs)
}
