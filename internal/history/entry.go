package history

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/XianJunYe/clipboard-manager/internal/clip"
)

// ImagePreview is the preview shown for image entries.
const ImagePreview = "[image]"

// Entry is one retained clipboard record. CreatedAt is in Unix milliseconds,
// matching the on-disk schema.
type Entry struct {
	ID        string    `json:"id"`
	Kind      clip.Kind `json:"kind"`
	Payload   string    `json:"payload"`
	Preview   string    `json:"preview"`
	CreatedAt int64     `json:"createdAt"`
}

// Created returns CreatedAt as a time.Time.
func (e Entry) Created() time.Time { return time.UnixMilli(e.CreatedAt) }

// Snapshot returns the clipboard content the entry represents.
func (e Entry) Snapshot() clip.Snapshot {
	return clip.Snapshot{Kind: e.Kind, Payload: e.Payload, CapturedAt: time.Now()}
}

// key is the deduplication key: text is compared with surrounding
// whitespace trimmed, images byte for byte.
func (e Entry) key() string {
	if e.Kind == clip.KindText {
		return string(e.Kind) + ":" + strings.TrimSpace(e.Payload)
	}
	return string(e.Kind) + ":" + e.Payload
}

// MakePreview renders payload for display. Text is truncated to max runes
// with control characters flattened to spaces; images get ImagePreview.
func MakePreview(payload string, kind clip.Kind, max int) string {
	if kind != clip.KindText {
		return ImagePreview
	}
	truncated := false
	if max > 0 && utf8.RuneCountInString(payload) > max {
		runes := []rune(payload)
		payload = string(runes[:max])
		truncated = true
	}
	payload = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, payload)
	if truncated {
		payload += "..."
	}
	return payload
}
