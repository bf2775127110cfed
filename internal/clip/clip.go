// Package clip provides a unified interface to the system clipboard across
// platforms. Build constraints and runtime probing select the backend:
//
//	clip_native.go  : darwin/windows/linux via golang.design/x/clipboard
//	clip_exec.go    : text only via github.com/atotto/clipboard (pbcopy, xclip, wl-copy)
//	clip_headless.go: in-memory stand-in when no display server is available
package clip

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is the type of content held by a Snapshot.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// ErrUnsupportedKind is returned by Write when a backend cannot hold the
// snapshot's kind.
var ErrUnsupportedKind = errors.New("clip: unsupported kind")

// imagePrefix is the data URI header used for image payloads. The native
// backends read and write PNG.
const imagePrefix = "data:image/png;base64,"

// Snapshot is the clipboard content at a point in time. Payload is raw UTF-8
// for text and a PNG data URI for images.
type Snapshot struct {
	Kind       Kind      `json:"kind"`
	Payload    string    `json:"payload"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Fingerprint identifies clipboard content for change detection.
type Fingerprint struct {
	Kind    Kind
	Payload string
}

// IsZero reports whether f is the empty fingerprint.
func (f Fingerprint) IsZero() bool { return f.Kind == "" && f.Payload == "" }

// Fingerprint returns the (kind, payload) pair of s.
func (s Snapshot) Fingerprint() Fingerprint {
	return Fingerprint{Kind: s.Kind, Payload: s.Payload}
}

// TextSnapshot returns a text snapshot captured now.
func TextSnapshot(text string) Snapshot {
	return Snapshot{Kind: KindText, Payload: text, CapturedAt: time.Now()}
}

// ImageSnapshot returns an image snapshot for raw PNG bytes captured now.
func ImageSnapshot(png []byte) Snapshot {
	return Snapshot{Kind: KindImage, Payload: EncodeImage(png), CapturedAt: time.Now()}
}

// EncodeImage returns the data URI for raw PNG bytes.
func EncodeImage(png []byte) string {
	return imagePrefix + base64.StdEncoding.EncodeToString(png)
}

// DecodeImage returns the raw PNG bytes of an image payload.
func DecodeImage(payload string) ([]byte, error) {
	b64, ok := strings.CutPrefix(payload, imagePrefix)
	if !ok {
		return nil, fmt.Errorf("clip: image payload is not a PNG data URI")
	}
	return base64.StdEncoding.DecodeString(b64)
}

// Backend is the interface that all platform clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard content. Text takes precedence over
	// an image when both are present, so an image copied while the same text
	// is still on the clipboard is not reported until the text goes away.
	// Sampling both formats would report one copy as two alternating changes.
	// ok is false when the clipboard is empty or holds only unsupported types.
	Read() (snap Snapshot, ok bool, err error)

	// Write replaces the clipboard content with snap.
	Write(snap Snapshot) error

	// Close releases any resources held by the backend.
	Close()
}

// Mode selects how New picks a backend.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeNative   Mode = "native"
	ModeExec     Mode = "exec"
	ModeHeadless Mode = "headless"
)

// ParseMode converts a string to a Mode, returning ModeAuto for unknown values.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(s)) {
	case ModeNative:
		return ModeNative
	case ModeExec:
		return ModeExec
	case ModeHeadless:
		return ModeHeadless
	default:
		return ModeAuto
	}
}
