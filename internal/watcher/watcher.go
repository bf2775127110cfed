// Package watcher samples the system clipboard, feeds new content to the
// history and backs off while nothing changes.
//
// Samples never overlap: the next one is scheduled only after the current
// one, including any history write, has finished.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/XianJunYe/clipboard-manager/internal/clip"
	"github.com/XianJunYe/clipboard-manager/internal/history"
)

// Source is the clipboard the watcher observes and writes through.
type Source interface {
	Read() (clip.Snapshot, bool, error)
	Write(clip.Snapshot) error
}

// Sink receives detected changes.
type Sink interface {
	Add(payload string, kind clip.Kind) (history.Entry, bool, error)
}

// Config controls the sampling cadence.
type Config struct {
	// BaseInterval is the period between samples while the clipboard is active.
	BaseInterval time.Duration
	// MaxInterval caps the backed-off period.
	MaxInterval time.Duration
	// SlowdownAfter is the number of consecutive unchanged samples tolerated
	// before the period starts to grow.
	SlowdownAfter int
}

// NextInterval returns the sampling period after noChange consecutive
// unchanged samples: BaseInterval until SlowdownAfter is exceeded, then
// growing by half of BaseInterval per extra sample, capped at MaxInterval.
func (c Config) NextInterval(noChange int) time.Duration {
	if noChange <= c.SlowdownAfter {
		return c.BaseInterval
	}
	excess := noChange - c.SlowdownAfter
	d := time.Duration(float64(c.BaseInterval) * (1 + float64(excess)*0.5))
	if c.MaxInterval > 0 && d > c.MaxInterval {
		return c.MaxInterval
	}
	return d
}

// Stats is a point-in-time view of the watcher state.
type Stats struct {
	Running     bool          `json:"running"`
	NoChange    int           `json:"noChange"`
	Interval    time.Duration `json:"interval"`
	LastKind    clip.Kind     `json:"lastKind,omitempty"`
	LastPreview string        `json:"lastPreview,omitempty"`
}

// Watcher polls a Source and hands changes to a Sink.
type Watcher struct {
	src  Source
	sink Sink
	cfg  Config

	// mu serializes samples with Write so the watcher never mistakes its own
	// write for user content.
	mu       sync.Mutex
	last     clip.Fingerprint
	noChange int

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New returns a stopped watcher.
func New(src Source, sink Sink, cfg Config) *Watcher {
	return &Watcher{src: src, sink: sink, cfg: cfg}
}

// Start begins the sampling loop. Calling Start on a running watcher logs a
// warning and does nothing. The loop ends when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.running {
		slog.Warn("clipboard watcher already running")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.running = true
	w.cancel = cancel
	w.done = done

	slog.Info("clipboard watcher started", "interval", w.cfg.BaseInterval)
	go w.run(ctx, done)
}

// Stop halts the loop and waits for an in-flight sample to finish. No sample
// runs after Stop returns. Stop is idempotent.
func (w *Watcher) Stop() {
	w.runMu.Lock()
	if !w.running {
		w.runMu.Unlock()
		return
	}
	cancel, done := w.cancel, w.done
	w.running = false
	w.cancel = nil
	w.done = nil
	w.runMu.Unlock()

	cancel()
	<-done
	slog.Info("clipboard watcher stopped")
}

// Running reports whether the sampling loop is active.
func (w *Watcher) Running() bool {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	return w.running
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	// A loop ended by its parent context clears the run state itself; after
	// Stop the fields already belong to the next Start.
	defer func() {
		w.runMu.Lock()
		defer w.runMu.Unlock()
		if w.done == done {
			w.cancel()
			w.running = false
			w.cancel = nil
			w.done = nil
			slog.Info("clipboard watcher stopped", "err", ctx.Err())
		}
	}()

	t := time.NewTimer(w.NextInterval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.CheckOnce()
			t.Reset(w.NextInterval())
		}
	}
}

// CheckOnce takes one sample. It returns the kind of the detected change and
// true, or false when the clipboard is unchanged, empty or unreadable.
func (w *Watcher) CheckOnce() (clip.Kind, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap, ok, err := w.src.Read()
	if err != nil {
		w.noChange++
		slog.Warn("clipboard read failed", "err", err)
		return "", false
	}
	if !ok || snap.Payload == "" || snap.Fingerprint() == w.last {
		w.noChange++
		return "", false
	}

	prev := w.last
	w.last = snap.Fingerprint()
	w.noChange = 0
	slog.Debug("clipboard change detected", "kind", snap.Kind)

	if _, _, err := w.sink.Add(snap.Payload, snap.Kind); err != nil {
		// Forget the content so the next sample retries it.
		w.last = prev
		slog.Error("failed to record clipboard change", "kind", snap.Kind, "err", err)
		return "", false
	}
	return snap.Kind, true
}

// Write puts snap on the clipboard and records it as already observed, so
// the next sample does not report it as a new change.
func (w *Watcher) Write(snap clip.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.src.Write(snap); err != nil {
		return err
	}
	w.last = snap.Fingerprint()
	slog.Debug("clipboard content set", "kind", snap.Kind)
	return nil
}

// Current reads the clipboard without affecting change detection.
func (w *Watcher) Current() (clip.Snapshot, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.src.Read()
}

// NextInterval returns the delay before the next sample.
func (w *Watcher) NextInterval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.NextInterval(w.noChange)
}

// Reset forgets the last observed content and the idle count.
func (w *Watcher) Reset() {
	w.mu.Lock()
	w.last = clip.Fingerprint{}
	w.noChange = 0
	w.mu.Unlock()
	slog.Debug("clipboard watcher state reset")
}

// Stats returns the current watcher state.
func (w *Watcher) Stats() Stats {
	running := w.Running()

	w.mu.Lock()
	defer w.mu.Unlock()
	st := Stats{
		Running:  running,
		NoChange: w.noChange,
		Interval: w.cfg.NextInterval(w.noChange),
		LastKind: w.last.Kind,
	}
	if !w.last.IsZero() {
		st.LastPreview = history.MakePreview(w.last.Payload, w.last.Kind, 50)
	}
	return st
}
