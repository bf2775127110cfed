// Package history maintains the bounded, ordered, deduplicated clipboard
// history and keeps it in step with durable storage.
//
// Every mutation is persisted before it becomes visible: if the persister
// fails, the in-memory sequence is rolled back so memory and disk never
// disagree.
package history

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/XianJunYe/clipboard-manager/internal/clip"
)

// ErrNotFound is returned when no entry has the requested ID.
var ErrNotFound = errors.New("history: entry not found")

// Options configures a Store.
type Options struct {
	// MaxHistory bounds the number of retained entries. Must be ≥ 1.
	MaxHistory int
	// MaxTextPreview is the preview length for text entries, in runes.
	MaxTextPreview int

	// Now and NewID default to time.Now and UUIDv7 strings.
	Now   func() time.Time
	NewID func() string
}

// ChangeListener is notified after every mutation that changed the history.
// Calls are made in mutation order and never concurrently; the listener may
// read the store but must not mutate it.
type ChangeListener func(entries []Entry)

// Store owns the ordered history, most recent first.
type Store struct {
	opts Options
	p    Persister

	mu      sync.Mutex
	entries []Entry

	notifyMu  sync.Mutex
	listeners []ChangeListener
}

// Open loads the history from p. A corrupt store is logged and replaced by an
// empty history. If the stored sequence exceeds MaxHistory (e.g. the limit was
// lowered) it is truncated and persisted immediately.
func Open(p Persister, opts Options) (*Store, error) {
	if opts.MaxHistory < 1 {
		return nil, fmt.Errorf("history: max history must be at least 1, got %d", opts.MaxHistory)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = newID
	}

	s := &Store{opts: opts, p: p}

	entries, err := p.Load()
	if err != nil {
		slog.Warn("history unreadable, starting empty", "err", err)
		entries = nil
	}
	s.entries = entries

	if len(s.entries) > opts.MaxHistory {
		slog.Info("history exceeds limit, truncating",
			"count", len(s.entries),
			"max", opts.MaxHistory,
		)
		s.entries = s.entries[:opts.MaxHistory]
		if err := p.Save(s.entries); err != nil {
			return nil, fmt.Errorf("persist truncated history: %w", err)
		}
	}
	return s, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// OnChange registers l to be called after each mutation.
func (s *Store) OnChange(l ChangeListener) {
	s.notifyMu.Lock()
	s.listeners = append(s.listeners, l)
	s.notifyMu.Unlock()
}

// Add inserts payload at the front of the history. Empty payloads are
// ignored, as is a payload identical in kind and content to the current most
// recent entry. Only that one entry is compared; older duplicates are left to
// Deduplicate. added reports whether the history changed.
func (s *Store) Add(payload string, kind clip.Kind) (entry Entry, added bool, err error) {
	if payload == "" {
		return Entry{}, false, nil
	}

	s.mu.Lock()
	if len(s.entries) > 0 {
		if top := s.entries[0]; top.Kind == kind && top.Payload == payload {
			s.mu.Unlock()
			return top, false, nil
		}
	}

	entry = Entry{
		ID:        s.opts.NewID(),
		Kind:      kind,
		Payload:   payload,
		Preview:   MakePreview(payload, kind, s.opts.MaxTextPreview),
		CreatedAt: s.opts.Now().UnixMilli(),
	}

	next := make([]Entry, 0, min(len(s.entries)+1, s.opts.MaxHistory))
	next = append(next, entry)
	next = append(next, s.entries...)
	if len(next) > s.opts.MaxHistory {
		next = next[:s.opts.MaxHistory]
	}

	if err := s.commitLocked(next); err != nil {
		return Entry{}, false, err
	}
	LogEntry("clipboard entry added", entry, len(next))
	return entry, true, nil
}

// Deduplicate keeps the first (most recent) occurrence of every
// (kind, normalized payload) key and drops the rest. The history is persisted
// only when something was removed. It returns the number of removed entries.
func (s *Store) Deduplicate() (int, error) {
	s.mu.Lock()
	seen := make(map[string]struct{}, len(s.entries))
	next := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		k := e.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		next = append(next, e)
	}

	removed := len(s.entries) - len(next)
	if removed == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	if err := s.commitLocked(next); err != nil {
		return 0, err
	}
	slog.Info("removed duplicate clipboard entries", "removed", removed, "count", len(next))
	return removed, nil
}

// Clear empties the history and persists the empty state.
func (s *Store) Clear() error {
	s.mu.Lock()
	if err := s.commitLocked([]Entry{}); err != nil {
		return err
	}
	slog.Info("clipboard history cleared")
	return nil
}

// commitLocked persists next and then swaps it in. It must be called with
// s.mu held and always releases it. Listeners are invoked after the swap,
// serialized by notifyMu which is acquired before s.mu is released so that
// notifications keep mutation order.
func (s *Store) commitLocked(next []Entry) error {
	if err := s.p.Save(next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist history: %w", err)
	}
	s.entries = next
	snapshot := slices.Clone(next)

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, l := range s.listeners {
		l(snapshot)
	}
	return nil
}

// Slice returns up to n of the most recent entries.
func (s *Store) Slice(n int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 {
		n = 0
	}
	return slices.Clone(s.entries[:min(n, len(s.entries))])
}

// All returns the full history.
func (s *Store) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Get returns the entry with the given ID.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// At returns the entry at position i, most recent first.
func (s *Store) At(i int) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.entries) {
		return Entry{}, fmt.Errorf("%w: index %d", ErrNotFound, i)
	}
	return s.entries[i], nil
}

// Close closes the underlying persister.
func (s *Store) Close() error {
	return s.p.Close()
}
