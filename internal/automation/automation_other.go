//go:build !darwin && !linux && !windows

package automation

import "context"

type unsupported struct{}

// New returns a stub whose operations all fail with ErrUnsupported.
func New() Automation { return unsupported{} }

func (unsupported) Name() string { return "unsupported" }

func (unsupported) ForegroundApp(context.Context) (string, error) { return "", ErrUnsupported }
func (unsupported) Activate(context.Context, string) error        { return ErrUnsupported }
func (unsupported) SendPaste(context.Context) error               { return ErrUnsupported }
func (unsupported) SendPasteToFrontmost(context.Context) error    { return ErrUnsupported }

func (unsupported) InvokeMenuPaste(context.Context, []MenuPath) error { return ErrUnsupported }
