// Package automation drives other applications: it finds and re-activates the
// foreground application and replays the paste gesture into it. Each
// platform has its own implementation selected by build constraints:
//
//	automation_darwin.go : AppleScript via osascript
//	automation_linux.go  : X11 via xdotool
//	automation_windows.go: user32 via golang.org/x/sys/windows
//	automation_other.go  : unsupported stub
package automation

import (
	"context"
	"errors"
)

// ErrUnsupported is returned for operations the platform cannot perform.
var ErrUnsupported = errors.New("automation: not supported on this platform")

// MenuPath names a menu and one of its items by their visible labels.
type MenuPath struct {
	Menu string `mapstructure:"menu" toml:"menu" json:"menu"`
	Item string `mapstructure:"item" toml:"item" json:"item"`
}

// DefaultMenuPaths are tried in order when invoking Paste from the menu bar:
// the Chinese labels first, then English.
var DefaultMenuPaths = []MenuPath{
	{Menu: "编辑", Item: "粘贴"},
	{Menu: "Edit", Item: "Paste"},
}

// Automation is the platform automation surface used by the focus tracker and
// the paste executor. Implementations do not wait for the target application
// to react; success only means the request was delivered.
type Automation interface {
	// Name returns a human-readable name for the implementation.
	Name() string

	// ForegroundApp returns an identifier for the application that currently
	// has keyboard focus.
	ForegroundApp(ctx context.Context) (string, error)

	// Activate asks the OS to bring app to the foreground.
	Activate(ctx context.Context, app string) error

	// SendPaste sends the platform paste shortcut to whatever is frontmost.
	SendPaste(ctx context.Context) error

	// SendPasteToFrontmost resolves the frontmost application process and
	// delivers the paste shortcut to it explicitly.
	SendPasteToFrontmost(ctx context.Context) error

	// InvokeMenuPaste clicks the first menu item in paths that exists in the
	// frontmost application's menu bar.
	InvokeMenuPaste(ctx context.Context, paths []MenuPath) error
}
