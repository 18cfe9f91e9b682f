// Package realtime fans HKI change notifications out to connected dashboards
// so their list caches can invalidate without polling.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const (
	EventCreated      = "hki.created"
	EventUpdated      = "hki.updated"
	EventDeleted      = "hki.deleted"
	EventStatus       = "hki.status"
	EventMasterChange = "master.changed"
	EventReady        = "ready"
)

// ChangeEvent tells subscribers that some records of Resource changed.
// IDs is advisory; receivers invalidate the whole resource namespace.
type ChangeEvent struct {
	Type     string  `json:"type"`
	Resource string  `json:"resource"`
	IDs      []int64 `json:"ids,omitempty"`
	At       string  `json:"at"`
	Origin   string  `json:"origin,omitempty"`
}

func NewEvent(eventType, resource string, ids ...int64) ChangeEvent {
	return ChangeEvent{
		Type:     eventType,
		Resource: resource,
		IDs:      ids,
		At:       time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func (e ChangeEvent) Marshal() []byte {
	b, _ := json.Marshal(e)
	return b
}

// Publisher is what the mutation code depends on.
type Publisher interface {
	Publish(ctx context.Context, evt ChangeEvent)
}

// Hub is the in-process fan-out. Slow subscribers drop events instead of
// blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan ChangeEvent]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: map[chan ChangeEvent]struct{}{}}
}

func (h *Hub) Subscribe(buffer int) chan ChangeEvent {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan ChangeEvent, buffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

// Close ends every subscription; later subscribers get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *Hub) Unsubscribe(ch chan ChangeEvent) {
	h.mu.Lock()
	_, exists := h.subs[ch]
	if exists {
		delete(h.subs, ch)
	}
	h.mu.Unlock()
	if exists {
		close(ch)
	}
}

func (h *Hub) Publish(_ context.Context, evt ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Nop discards events; used when nothing listens.
type Nop struct{}

func (Nop) Publish(context.Context, ChangeEvent) {}
