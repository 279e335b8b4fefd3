// Package eventbus provides in-memory pub/sub of session state changes.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jxucoder/truthordare/model"
)

// Event types.
const (
	TypeState  = "state"
	TypeClosed = "closed"
)

// Event is a single state change of a session.
type Event struct {
	ID        int64              `json:"id"`
	SessionID string             `json:"session_id"`
	Type      string             `json:"type"`
	State     model.SessionState `json:"state"`
	CreatedAt time.Time          `json:"created_at"`
}

// Bus fans events out to subscribers of a session.
type Bus interface {
	Publish(sessionID string, event *Event)
	Subscribe(sessionID string) chan *Event
	Unsubscribe(sessionID string, ch chan *Event)
	// Close drops every subscriber of the session, closing their channels.
	Close(sessionID string)
}

// InMemoryBus is a Bus backed by buffered channels.
type InMemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]chan *Event
	nextID atomic.Int64
}

// NewInMemoryBus creates a new InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		subs: make(map[string][]chan *Event),
	}
}

// Subscribe creates a channel that receives events for a session.
func (b *InMemoryBus) Subscribe(sessionID string) chan *Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *Event, 64)
	b.subs[sessionID] = append(b.subs[sessionID], ch)
	return ch
}

// Unsubscribe removes a channel from the session's subscribers. It is a
// no-op if the channel was already removed by Close.
func (b *InMemoryBus) Unsubscribe(sessionID string, ch chan *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sessionID]
	for i, s := range subs {
		if s == ch {
			b.subs[sessionID] = append(subs[:i], subs[i+1:]...)
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
			close(ch)
			return
		}
	}
}

// Publish sends an event to all subscribers for a session. IDs and
// timestamps are assigned here when missing.
func (b *InMemoryBus) Publish(sessionID string, event *Event) {
	if event.ID == 0 {
		event.ID = b.nextID.Add(1)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[sessionID] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is too slow.
		}
	}
}

// Close sends a final closed event and drops all subscribers of a session.
func (b *InMemoryBus) Close(sessionID string) {
	b.Publish(sessionID, &Event{SessionID: sessionID, Type: TypeClosed})

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[sessionID] {
		close(ch)
	}
	delete(b.subs, sessionID)
}

// Subscribers returns the number of live subscribers of a session.
func (b *InMemoryBus) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}
