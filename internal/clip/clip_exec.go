package clip

import (
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

// execBackend shells out to the platform clipboard tools (pbcopy/pbpaste,
// xclip, xsel, wl-copy/wl-paste). It only handles text, which makes it the
// fallback for Wayland sessions and builds without cgo.
type execBackend struct{}

func newExec() (Backend, error) {
	if clipboard.Unsupported {
		return nil, errors.New("no clipboard utility found (install xclip, xsel or wl-clipboard)")
	}
	return execBackend{}, nil
}

func (execBackend) Name() string { return "exec clipboard (text only)" }

func (execBackend) Read() (Snapshot, bool, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("clipboard read: %w", err)
	}
	if text == "" {
		return Snapshot{}, false, nil
	}
	return Snapshot{Kind: KindText, Payload: text, CapturedAt: time.Now()}, true, nil
}

func (execBackend) Write(snap Snapshot) error {
	if snap.Kind != KindText {
		return unsupported(snap.Kind)
	}
	if err := clipboard.WriteAll(snap.Payload); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	return nil
}

func (execBackend) Close() {}
