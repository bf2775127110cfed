package clip

import (
	"fmt"
	"log/slog"
)

// New returns the backend for mode. In ModeAuto the native backend is tried
// first, then the exec backend, and finally the headless stand-in so that the
// daemon keeps running on machines without a display server.
func New(mode Mode) (Backend, error) {
	switch mode {
	case ModeNative:
		return newNative()
	case ModeExec:
		return newExec()
	case ModeHeadless:
		return newHeadless(), nil
	}

	b, err := newNative()
	if err == nil {
		return b, nil
	}
	slog.Warn("native clipboard unavailable, trying exec backend", "err", err)

	b, err = newExec()
	if err == nil {
		return b, nil
	}
	slog.Warn("clipboard unavailable, running headless", "err", err)
	return newHeadless(), nil
}

func unsupported(k Kind) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedKind, k)
}
