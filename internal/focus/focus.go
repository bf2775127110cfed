// Package focus remembers which application had keyboard focus when the
// picker opened and hands focus back to it afterwards.
package focus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// activateTimeout bounds a single background activation request.
const activateTimeout = 5 * time.Second

// Automation is the subset of platform automation the tracker needs.
type Automation interface {
	ForegroundApp(ctx context.Context) (string, error)
	Activate(ctx context.Context, app string) error
}

// Tracker holds the focus token for the current picker session.
type Tracker struct {
	auto Automation

	mu    sync.Mutex
	token string
}

// New returns a tracker with no token.
func New(auto Automation) *Tracker {
	return &Tracker{auto: auto}
}

// Record stores the current foreground application as the focus token. On
// failure the previous token is kept.
func (t *Tracker) Record(ctx context.Context) {
	app, err := t.auto.ForegroundApp(ctx)
	if err != nil {
		slog.Debug("could not determine foreground application", "err", err)
		return
	}
	t.mu.Lock()
	t.token = app
	t.mu.Unlock()
	slog.Debug("recorded foreground application", "app", app)
}

// Token returns the recorded application, or "" if none.
func (t *Tracker) Token() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token
}

// Clear forgets the recorded application.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.token = ""
	t.mu.Unlock()
}

// Restore asks the OS to re-activate the recorded application. The request
// runs in the background and is not awaited, since the OS gives no
// synchronous confirmation that focus moved. It reports whether a token was
// set.
func (t *Tracker) Restore(ctx context.Context) bool {
	app := t.Token()
	if app == "" {
		return false
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, activateTimeout)
		defer cancel()
		if err := t.auto.Activate(ctx, app); err != nil {
			slog.Debug("failed to restore application focus", "app", app, "err", err)
			return
		}
		slog.Debug("restored application focus", "app", app)
	}()
	return true
}
