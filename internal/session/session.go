// Package session ties the core together for one user session: it owns the
// picker and detail view state, routes presentation requests to the history
// and the paste executor, and publishes what changed.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/XianJunYe/clipboard-manager/internal/clip"
	"github.com/XianJunYe/clipboard-manager/internal/history"
	"github.com/XianJunYe/clipboard-manager/internal/hub"
	"github.com/XianJunYe/clipboard-manager/internal/paste"
	"github.com/XianJunYe/clipboard-manager/internal/watcher"
)

// Watcher is the clipboard watcher as seen by the session.
type Watcher interface {
	Start(ctx context.Context)
	Stop()
	Current() (clip.Snapshot, bool, error)
	Stats() watcher.Stats
}

// Focus records and restores the application the picker was opened over.
type Focus interface {
	Record(ctx context.Context)
	Restore(ctx context.Context) bool
	Token() string
	Clear()
}

// Paster replays an entry into the focused application.
type Paster interface {
	Execute(ctx context.Context, e history.Entry) paste.Result
}

// Options configures a Session.
type Options struct {
	// QuickSelectMaxItems is the number of numbered picker slots. The picker
	// receives one extra entry so the view can tell there is more.
	QuickSelectMaxItems int
	DeduplicateOnStart  bool
}

// Status is a snapshot of the session.
type Status struct {
	Entries       int           `json:"entries"`
	PickerVisible bool          `json:"pickerVisible"`
	DetailVisible bool          `json:"detailVisible"`
	FocusApp      string        `json:"focusApp,omitempty"`
	Watcher       watcher.Stats `json:"watcher"`
}

// Session is the single per-process coordinator.
type Session struct {
	store  *history.Store
	watch  Watcher
	focus  Focus
	paster Paster
	hub    *hub.Hub
	opts   Options

	mu     sync.Mutex
	picker bool
	detail bool
}

// New wires a session and subscribes the hub to history changes.
func New(store *history.Store, w Watcher, f Focus, p Paster, h *hub.Hub, opts Options) *Session {
	if opts.QuickSelectMaxItems < 1 {
		opts.QuickSelectMaxItems = 9
	}
	s := &Session{store: store, watch: w, focus: f, paster: p, hub: h, opts: opts}
	store.OnChange(func(entries []history.Entry) {
		h.Publish(hub.Event{Type: hub.HistoryChanged, Entries: entries})
	})
	return s
}

// Start optionally collapses duplicate history and starts the watcher.
func (s *Session) Start(ctx context.Context) {
	if s.opts.DeduplicateOnStart {
		if _, err := s.store.Deduplicate(); err != nil {
			slog.Warn("startup deduplication failed", "err", err)
		}
	}
	slog.Info("history loaded", "count", s.store.Len())
	s.watch.Start(ctx)
}

// Stop halts the watcher and closes any open views.
func (s *Session) Stop() {
	s.watch.Stop()

	s.mu.Lock()
	picker, detail := s.picker, s.detail
	s.picker, s.detail = false, false
	s.mu.Unlock()

	if picker {
		s.hub.Publish(hub.Event{Type: hub.PickerClosed})
	}
	if detail {
		s.hub.Publish(hub.Event{Type: hub.DetailClosed})
	}
	s.focus.Clear()
}

// Hub returns the event hub.
func (s *Session) Hub() *hub.Hub { return s.hub }

// RequestOpenPicker records the foreground application and shows the quick
// picker. Opening an already visible picker only returns its entries.
func (s *Session) RequestOpenPicker(ctx context.Context) []history.Entry {
	return s.openPicker(ctx, true)
}

func (s *Session) openPicker(ctx context.Context, record bool) []history.Entry {
	entries := s.store.Slice(s.opts.QuickSelectMaxItems + 1)

	s.mu.Lock()
	visible := s.picker
	s.picker = true
	s.mu.Unlock()
	if !visible {
		s.pickerOpened(ctx, entries, record)
	}
	return entries
}

func (s *Session) pickerOpened(ctx context.Context, entries []history.Entry, record bool) {
	if record {
		s.focus.Record(ctx)
	}
	s.hub.Publish(hub.Event{Type: hub.PickerOpened, Entries: entries})
}

// RequestClose hides the picker and hands focus back to the application it
// was opened over.
func (s *Session) RequestClose(ctx context.Context) {
	s.mu.Lock()
	was := s.picker
	s.picker = false
	s.mu.Unlock()
	s.pickerClosed(ctx, was)
}

func (s *Session) pickerClosed(ctx context.Context, was bool) {
	s.focus.Restore(ctx)
	if was {
		s.hub.Publish(hub.Event{Type: hub.PickerClosed})
	}
}

// RequestToggle closes a visible picker or opens a hidden one. It reports
// whether the picker is now visible.
func (s *Session) RequestToggle(ctx context.Context) (bool, []history.Entry) {
	entries := s.store.Slice(s.opts.QuickSelectMaxItems + 1)

	s.mu.Lock()
	visible := !s.picker
	s.picker = visible
	s.mu.Unlock()

	if !visible {
		s.pickerClosed(ctx, true)
		return false, nil
	}
	s.pickerOpened(ctx, entries, true)
	return true, entries
}

// RequestShowDetail swaps the quick picker for the detail view without
// restoring focus, and returns the full history.
func (s *Session) RequestShowDetail() []history.Entry {
	entries := s.store.All()

	s.mu.Lock()
	picker, detail := s.picker, s.detail
	s.picker = false
	s.detail = true
	s.mu.Unlock()

	if picker {
		s.hub.Publish(hub.Event{Type: hub.PickerClosed})
	}
	if !detail {
		s.hub.Publish(hub.Event{Type: hub.DetailOpened, Entries: entries})
	}
	return entries
}

// RequestBackToPicker closes the detail view and re-opens the picker over the
// application recorded when the picker first opened.
func (s *Session) RequestBackToPicker(ctx context.Context) []history.Entry {
	s.mu.Lock()
	detail := s.detail
	s.detail = false
	s.mu.Unlock()

	if detail {
		s.hub.Publish(hub.Event{Type: hub.DetailClosed})
	}
	return s.openPicker(ctx, false)
}

// RequestPaste pastes the entry with the given ID. The picker is hidden
// first; a detail view that triggered the paste is closed once the executor
// is finished.
func (s *Session) RequestPaste(ctx context.Context, id string) (paste.Result, error) {
	e, err := s.store.Get(id)
	if err != nil {
		return paste.Result{}, err
	}
	return s.paste(ctx, e), nil
}

// RequestSelect pastes the entry at picker position index (0-based) and
// closes the picker.
func (s *Session) RequestSelect(ctx context.Context, index int) (paste.Result, error) {
	e, err := s.store.At(index)
	if err != nil {
		return paste.Result{}, fmt.Errorf("select %d: %w", index, err)
	}
	return s.paste(ctx, e), nil
}

func (s *Session) paste(ctx context.Context, e history.Entry) paste.Result {
	s.mu.Lock()
	picker, detail := s.picker, s.detail
	s.picker = false
	s.mu.Unlock()

	if picker {
		s.hub.Publish(hub.Event{Type: hub.PickerClosed})
	}

	res := s.paster.Execute(ctx, e)
	s.hub.Publish(hub.Event{Type: hub.Pasted, Paste: &res, Error: res.ErrorText()})

	if detail {
		s.mu.Lock()
		s.detail = false
		s.mu.Unlock()
		s.hub.Publish(hub.Event{Type: hub.DetailClosed})
	}
	return res
}

// RequestClearHistory empties the history.
func (s *Session) RequestClearHistory() error {
	return s.store.Clear()
}

// RequestDeduplicate collapses duplicate entries and returns how many were
// removed.
func (s *Session) RequestDeduplicate() (int, error) {
	return s.store.Deduplicate()
}

// Entries returns up to n of the most recent entries; n <= 0 means all.
func (s *Session) Entries(n int) []history.Entry {
	if n <= 0 {
		return s.store.All()
	}
	return s.store.Slice(n)
}

// CurrentContent returns what is on the clipboard right now.
func (s *Session) CurrentContent() (clip.Snapshot, bool, error) {
	return s.watch.Current()
}

// Status reports the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{PickerVisible: s.picker, DetailVisible: s.detail}
	s.mu.Unlock()

	st.Entries = s.store.Len()
	st.FocusApp = s.focus.Token()
	st.Watcher = s.watch.Stats()
	return st
}
