// Package room fans poll snapshots out to every live subscriber of a poll.
package room

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/ammoru/pulseroom/internal/model"
	"github.com/google/uuid"
)

// Conn is the write side of one subscriber connection. WriteSnapshot is
// called from the subscriber's own writer goroutine, never concurrently.
type Conn interface {
	WriteSnapshot(payload []byte) error
	Close() error
}

// Subscriber couples a connection with a single-slot delivery channel. A
// snapshot that has not been written yet is replaced by a newer one, so a
// slow reader only ever misses superseded intermediates, never ordering.
// Control frames travel on a side channel so they cannot displace a
// pending snapshot; both are drained by the one writer goroutine.
type Subscriber struct {
	conn Conn

	mu      sync.Mutex
	slot    chan []byte
	control chan []byte
	closed  bool
}

func NewSubscriber(conn Conn) *Subscriber {
	return &Subscriber{
		conn:    conn,
		slot:    make(chan []byte, 1),
		control: make(chan []byte, 4),
	}
}

// Offer queues a snapshot without blocking, dropping the undelivered
// predecessor if the slot is full.
func (s *Subscriber) Offer(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.slot <- payload:
			return
		default:
			select {
			case <-s.slot:
			default:
			}
		}
	}
}

// OfferControl queues a control frame (an error notice) alongside the
// snapshot slot. Non-blocking; dropped when the buffer is full.
func (s *Subscriber) OfferControl(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.control <- payload:
	default:
	}
}

// Close stops delivery. Idempotent; the writer goroutine drains and exits.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.slot)
}

// Run drains the delivery channels onto the connection until the
// subscriber is closed or a write fails. It blocks and is meant to run as
// the connection's writer goroutine. A failed write closes the connection,
// which unblocks the transport read loop and triggers Leave.
func (s *Subscriber) Run() {
	for {
		var payload []byte
		var ok bool
		select {
		case payload, ok = <-s.slot:
			if !ok {
				return
			}
		case payload = <-s.control:
		}
		if err := s.conn.WriteSnapshot(payload); err != nil {
			_ = s.conn.Close()
			return
		}
	}
}

// Broadcaster keeps the registry of pollID -> live subscribers.
type Broadcaster struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Subscriber]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{rooms: make(map[uuid.UUID]map[*Subscriber]struct{})}
}

// Join registers the subscriber and immediately queues the current
// snapshot so a late joiner is never stale. The snapshot is queued while
// the registry lock is held: any Publish that sees this subscriber
// happens after, so the join snapshot never replaces a newer one.
func (b *Broadcaster) Join(pollID uuid.UUID, sub *Subscriber, current model.Poll) {
	payload, err := marshalUpdate(current)
	if err != nil {
		log.Printf("room: failed to marshal join snapshot for poll %s: %v", pollID, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	room, ok := b.rooms[pollID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		b.rooms[pollID] = room
	}
	room[sub] = struct{}{}
	sub.Offer(payload)
}

// Leave deregisters the subscriber; safe to call more than once and for
// subscribers that never joined. It does not stop the subscriber itself,
// so a connection can leave one room and join another.
func (b *Broadcaster) Leave(pollID uuid.UUID, sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if room, ok := b.rooms[pollID]; ok {
		delete(room, sub)
		if len(room) == 0 {
			delete(b.rooms, pollID)
		}
	}
}

// Publish queues the snapshot for every subscriber of the poll. Delivery
// is per-connection and non-blocking; failures never reach the caller.
// Calls for the same poll are serialized by the engine's per-poll lock,
// which is what keeps delivery in commit order.
func (b *Broadcaster) Publish(pollID uuid.UUID, snapshot model.Poll) {
	payload, err := marshalUpdate(snapshot)
	if err != nil {
		log.Printf("room: failed to marshal snapshot for poll %s: %v", pollID, err)
		return
	}

	b.mu.RLock()
	subs := make([]*Subscriber, 0, len(b.rooms[pollID]))
	for sub := range b.rooms[pollID] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.Offer(payload)
	}
}

// RoomSize reports the current subscriber count for a poll.
func (b *Broadcaster) RoomSize(pollID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[pollID])
}

// UpdateMessage is the wire envelope pushed to subscribers.
type UpdateMessage struct {
	Type string     `json:"type"`
	Poll model.Poll `json:"poll"`
}

const MsgTypeUpdate = "poll:update"

func marshalUpdate(snapshot model.Poll) ([]byte, error) {
	return json.Marshal(UpdateMessage{Type: MsgTypeUpdate, Poll: snapshot})
}
