//go:build darwin || windows || linux

package clip

import (
	"fmt"
	"time"

	"golang.design/x/clipboard"
)

type nativeBackend struct{}

// newNative initialises golang.design/x/clipboard. Init is called here rather
// than in init() so that CLI sub-commands that never construct a Backend don't
// fail on headless systems.
func newNative() (Backend, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("clipboard init: %w", err)
	}
	return nativeBackend{}, nil
}

func (nativeBackend) Name() string { return "native clipboard" }

// Read checks text before images; see Backend.Read.
func (nativeBackend) Read() (Snapshot, bool, error) {
	now := time.Now()
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		return Snapshot{Kind: KindText, Payload: string(text), CapturedAt: now}, true, nil
	}
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		return Snapshot{Kind: KindImage, Payload: EncodeImage(img), CapturedAt: now}, true, nil
	}
	return Snapshot{}, false, nil
}

func (nativeBackend) Write(snap Snapshot) error {
	switch snap.Kind {
	case KindText:
		clipboard.Write(clipboard.FmtText, []byte(snap.Payload))
	case KindImage:
		png, err := DecodeImage(snap.Payload)
		if err != nil {
			return err
		}
		clipboard.Write(clipboard.FmtImage, png)
	default:
		return unsupported(snap.Kind)
	}
	return nil
}

func (nativeBackend) Close() {}
