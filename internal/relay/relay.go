// Package relay fans room events out to per-participant sinks. The relay
// does not retry: an unreachable participant is logged and skipped, and the
// state mutation that produced the event is never rolled back.
package relay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pawnhub/chess-room-server/internal/obslog"
	"github.com/pawnhub/chess-room-server/pkg/roomdto"
)

// Sink is one participant's outbound channel, owned by the connection
// manager. Send must not block indefinitely.
type Sink interface {
	Send(ctx context.Context, ev roomdto.ServerEvent) error
}

const roomQueueSize = 256

type delivery struct {
	recipients []string
	ev         roomdto.ServerEvent
}

// Broadcaster keeps the sink registry and delivers events to recipients in
// the order given by the caller (join order). Each room has a single
// delivery worker, so events reach a room's sinks in publish order while
// delivery stays detached from the mutation that triggered it.
type Broadcaster struct {
	mu      sync.RWMutex
	sinks   map[string]map[string]Sink // roomID -> userID -> sink
	queues  map[string]chan delivery   // roomID -> per-room delivery queue
	timeout time.Duration
}

func NewBroadcaster(sendTimeout time.Duration) *Broadcaster {
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Broadcaster{
		sinks:   make(map[string]map[string]Sink),
		queues:  make(map[string]chan delivery),
		timeout: sendTimeout,
	}
}

// Attach registers the sink for (roomID, userID), replacing any previous one.
// The first sink of a room starts its delivery worker.
func (b *Broadcaster) Attach(roomID, userID string, s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room, ok := b.sinks[roomID]
	if !ok {
		room = make(map[string]Sink)
		b.sinks[roomID] = room
		q := make(chan delivery, roomQueueSize)
		b.queues[roomID] = q
		go b.run(roomID, q)
	}
	room[userID] = s
}

// Detach removes the sink for (roomID, userID). Removing the last sink of a
// room stops its delivery worker.
func (b *Broadcaster) Detach(roomID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room, ok := b.sinks[roomID]; ok {
		delete(room, userID)
		if len(room) == 0 {
			delete(b.sinks, roomID)
			if q, ok := b.queues[roomID]; ok {
				delete(b.queues, roomID)
				close(q)
			}
		}
	}
}

// SessionCount reports the number of attached sinks across all rooms.
func (b *Broadcaster) SessionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, room := range b.sinks {
		n += len(room)
	}
	return n
}

// Publish enqueues ev for the room's delivery worker, fire-and-forget.
// Rooms with no attached sinks and full queues drop the event.
func (b *Broadcaster) Publish(roomID string, recipients []string, ev roomdto.ServerEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.queues[roomID]
	if !ok {
		return
	}
	select {
	case q <- delivery{recipients: recipients, ev: ev}:
	default:
		obslog.L().Warn("relay_queue_full",
			zap.String("room_id", roomID),
			zap.String("event", ev.Type),
		)
	}
}

func (b *Broadcaster) run(roomID string, q chan delivery) {
	for d := range q {
		b.deliver(roomID, d.recipients, d.ev)
	}
}

// deliver walks the recipients in order. A failing or missing sink never
// prevents delivery to the ones after it.
func (b *Broadcaster) deliver(roomID string, recipients []string, ev roomdto.ServerEvent) {
	for _, userID := range recipients {
		b.mu.RLock()
		var s Sink
		if room, ok := b.sinks[roomID]; ok {
			s = room[userID]
		}
		b.mu.RUnlock()
		if s == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		err := s.Send(ctx, ev)
		cancel()
		if err != nil {
			obslog.L().Warn("relay_send_error",
				zap.String("room_id", roomID),
				zap.String("user_id", userID),
				zap.String("event", ev.Type),
				zap.Error(err),
			)
		}
	}
}
