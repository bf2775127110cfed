//go:build linux

package automation

import (
	"context"
	"errors"
	"fmt"
)

type x11 struct{}

// New returns the X11 implementation backed by xdotool. Window IDs serve as
// application identifiers.
func New() Automation { return x11{} }

func (x11) Name() string { return "X11 xdotool" }

func (x11) ForegroundApp(ctx context.Context) (string, error) {
	id, err := run(ctx, "xdotool", "getactivewindow")
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New("no active window")
	}
	return id, nil
}

func (x11) Activate(ctx context.Context, app string) error {
	_, err := run(ctx, "xdotool", "windowactivate", app)
	return err
}

func (x11) SendPaste(ctx context.Context) error {
	_, err := run(ctx, "xdotool", "key", "--clearmodifiers", "ctrl+v")
	return err
}

func (x11) SendPasteToFrontmost(ctx context.Context) error {
	_, err := run(ctx, "xdotool", "getactivewindow", "key", "--clearmodifiers", "--window", "%1", "ctrl+v")
	return err
}

func (x11) InvokeMenuPaste(context.Context, []MenuPath) error {
	return fmt.Errorf("%w: menu paste needs an accessibility bridge on X11", ErrUnsupported)
}
