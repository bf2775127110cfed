// Package paste replays a history entry into the application that had focus
// before the picker opened.
//
// An Execute call walks a fixed sequence of states:
//
//	WriteClipboard -> RestoreFocus -> Attempt(1..n) -> Done | Exhausted
//
// A failed clipboard write ends in Aborted instead. Whatever the outcome the
// executor never panics and never blocks the clipboard watcher.
package paste

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/XianJunYe/clipboard-manager/internal/automation"
	"github.com/XianJunYe/clipboard-manager/internal/clip"
	"github.com/XianJunYe/clipboard-manager/internal/history"
)

// ErrExhausted is reported when every strategy failed. The entry is still on
// the clipboard so the user can paste manually.
var ErrExhausted = errors.New("paste: all strategies failed")

// State is a step of the paste state machine.
type State string

const (
	StateWriteClipboard State = "write-clipboard"
	StateRestoreFocus   State = "restore-focus"
	StateAttempt        State = "attempt"
	StateDone           State = "done"
	StateExhausted      State = "exhausted"
	StateAborted        State = "aborted"
)

// Writer puts content on the clipboard. The watcher implements it so its own
// writes are not recorded as new history.
type Writer interface {
	Write(clip.Snapshot) error
}

// Focus is the part of the focus tracker the executor drives.
type Focus interface {
	Token() string
	Restore(ctx context.Context) bool
}

// Strategy is one technique for triggering a paste in the target process.
type Strategy struct {
	Name string
	Run  func(ctx context.Context) error
}

// DefaultStrategies returns the standard fallback chain: the paste shortcut
// sent to whatever is frontmost, the same shortcut addressed to the frontmost
// process, and finally the Edit > Paste menu item looked up by label.
func DefaultStrategies(a automation.Automation, menus []automation.MenuPath) []Strategy {
	if len(menus) == 0 {
		menus = automation.DefaultMenuPaths
	}
	return []Strategy{
		{Name: "keystroke", Run: a.SendPaste},
		{Name: "keystroke-frontmost", Run: a.SendPasteToFrontmost},
		{Name: "menu", Run: func(ctx context.Context) error {
			return a.InvokeMenuPaste(ctx, menus)
		}},
	}
}

// Config holds the fixed delays between states.
type Config struct {
	// FocusRestoreDelay is waited after asking the OS to re-activate the
	// previous application.
	FocusRestoreDelay time.Duration
	// PasteDelay is waited instead when there is no application to restore.
	PasteDelay time.Duration
	// RetryDelay separates a failed strategy from the next one.
	RetryDelay time.Duration
	// AttemptTimeout bounds a single strategy call. Zero means no bound.
	AttemptTimeout time.Duration
}

// Result describes how an Execute call ended.
type Result struct {
	State    State    `json:"state"`
	Attempts []string `json:"attempts,omitempty"`
	Strategy string   `json:"strategy,omitempty"`
	Err      error    `json:"-"`
}

// ErrorText returns the error text, or "" on success.
func (r Result) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Executor runs paste attempts one at a time.
type Executor struct {
	clip       Writer
	focus      Focus
	strategies []Strategy
	cfg        Config

	// Sleep waits between states. Tests replace it.
	Sleep func(time.Duration)

	mu sync.Mutex
}

// NewExecutor returns an executor trying strategies in the given order.
func NewExecutor(w Writer, f Focus, strategies []Strategy, cfg Config) *Executor {
	return &Executor{
		clip:       w,
		focus:      f,
		strategies: strategies,
		cfg:        cfg,
		Sleep:      time.Sleep,
	}
}

// Execute pastes e into the previously focused application. Once started it
// runs to a terminal state: cancelling ctx does not interrupt it, only the
// values carried by ctx are used. Concurrent calls are serialized.
func (x *Executor) Execute(ctx context.Context, e history.Entry) Result {
	ctx = context.WithoutCancel(ctx)

	x.mu.Lock()
	defer x.mu.Unlock()

	log := slog.With("id", e.ID, "kind", e.Kind)

	// WriteClipboard
	if err := x.clip.Write(e.Snapshot()); err != nil {
		log.Error("failed to place entry on clipboard", "state", StateWriteClipboard, "err", err)
		return Result{State: StateAborted, Err: fmt.Errorf("write clipboard: %w", err)}
	}

	// RestoreFocus
	if x.focus != nil && x.focus.Restore(ctx) {
		log.Debug("waiting for focus to return", "state", StateRestoreFocus, "delay", x.cfg.FocusRestoreDelay)
		x.Sleep(x.cfg.FocusRestoreDelay)
	} else {
		x.Sleep(x.cfg.PasteDelay)
	}

	// Attempt(k)
	res := Result{Attempts: make([]string, 0, len(x.strategies))}
	var errs []error
	for i, s := range x.strategies {
		res.Attempts = append(res.Attempts, s.Name)
		err := x.attempt(ctx, s)
		if err == nil {
			res.State = StateDone
			res.Strategy = s.Name
			log.Info("pasted entry", "strategy", s.Name, "attempt", i+1)
			return res
		}
		log.Debug("paste strategy failed", "strategy", s.Name, "attempt", i+1, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		if i < len(x.strategies)-1 {
			x.Sleep(x.cfg.RetryDelay)
		}
	}

	res.State = StateExhausted
	res.Err = fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
	log.Warn("automatic paste failed, entry left on clipboard", "attempts", len(res.Attempts), "err", errors.Join(errs...))
	return res
}

func (x *Executor) attempt(ctx context.Context, s Strategy) (err error) {
	if x.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.cfg.AttemptTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()
	return s.Run(ctx)
}
