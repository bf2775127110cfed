//go:build darwin

package automation

import (
	"context"
	"errors"
)

type darwin struct{}

// New returns the macOS implementation. It requires the Accessibility
// permission for System Events.
func New() Automation { return darwin{} }

func (darwin) Name() string { return "macOS osascript" }

func osascript(ctx context.Context, script string) (string, error) {
	return run(ctx, "osascript", "-e", script)
}

func (darwin) ForegroundApp(ctx context.Context) (string, error) {
	app, err := osascript(ctx, scriptForegroundApp)
	if err != nil {
		return "", err
	}
	if app == "" {
		return "", errors.New("no frontmost application")
	}
	return app, nil
}

func (darwin) Activate(ctx context.Context, app string) error {
	_, err := osascript(ctx, activateScript(app))
	return err
}

func (darwin) SendPaste(ctx context.Context) error {
	_, err := osascript(ctx, scriptKeystroke)
	return err
}

func (darwin) SendPasteToFrontmost(ctx context.Context) error {
	_, err := osascript(ctx, scriptKeystrokeProc)
	return err
}

func (darwin) InvokeMenuPaste(ctx context.Context, paths []MenuPath) error {
	if len(paths) == 0 {
		return errors.New("no menu paths configured")
	}
	_, err := osascript(ctx, menuPasteScript(paths))
	return err
}
