// Package hub fans session events out to the presentation layer. It is
// transport-agnostic: subscribers register, receive events via Send, and the
// session publishes.
package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/XianJunYe/clipboard-manager/internal/history"
	"github.com/XianJunYe/clipboard-manager/internal/paste"
)

// EventType names what happened.
type EventType string

const (
	HistoryChanged EventType = "historyChanged"
	PickerOpened   EventType = "pickerOpened"
	PickerClosed   EventType = "pickerClosed"
	DetailOpened   EventType = "detailOpened"
	DetailClosed   EventType = "detailClosed"
	Pasted         EventType = "pasted"
)

// Event is delivered to every subscriber.
type Event struct {
	Type    EventType       `json:"type"`
	Entries []history.Entry `json:"entries,omitempty"`
	Paste   *paste.Result   `json:"paste,omitempty"`
	Error   string          `json:"error,omitempty"`
	At      time.Time       `json:"at"`
}

// Subscriber is anything that can receive events from the hub.
type Subscriber interface {
	ID() string
	// Send delivers an event. Must be non-blocking and must not call back
	// into the hub.
	Send(Event)
}

// Hub routes events to all registered subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]Subscriber
	latest *Event // last HistoryChanged
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[string]Subscriber)}
}

// Register adds s and immediately delivers the latest history, if any. The
// replay is ordered before any event published after it.
func (h *Hub) Register(s Subscriber) {
	h.mu.Lock()
	if h.latest != nil {
		s.Send(*h.latest)
	}
	h.subs[s.ID()] = s
	total := len(h.subs)
	h.mu.Unlock()

	slog.Debug("subscriber registered", "subscriber", s.ID(), "total", total)
}

// Unregister removes s.
func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	delete(h.subs, s.ID())
	total := len(h.subs)
	h.mu.Unlock()
	slog.Debug("subscriber unregistered", "subscriber", s.ID(), "total", total)
}

// Publish stamps ev and fans it out to every subscriber. Delivery happens
// under the hub lock, so every subscriber sees events in publish order.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if ev.Type == HistoryChanged {
		latest := ev
		h.latest = &latest
	}
	for _, s := range h.subs {
		s.Send(ev)
	}
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Chan is a Subscriber backed by a buffered channel. Events that do not fit
// are dropped with a warning.
type Chan struct {
	id string
	C  chan Event
}

// NewChan returns a channel subscriber with the given buffer size.
func NewChan(id string, buf int) *Chan {
	return &Chan{id: id, C: make(chan Event, buf)}
}

func (c *Chan) ID() string { return c.id }

func (c *Chan) Send(ev Event) {
	select {
	case c.C <- ev:
	default:
		slog.Warn("subscriber channel full, dropping event", "subscriber", c.id, "event", ev.Type)
	}
}
