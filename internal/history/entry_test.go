package history

import (
	"testing"

	"github.com/XianJunYe/clipboard-manager/internal/clip"
)

func TestMakePreview(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    clip.Kind
		max     int
		want    string
	}{
		{"short", "hi", clip.KindText, 10, "hi"},
		{"exact", "0123456789", clip.KindText, 10, "0123456789"},
		{"truncated", "0123456789x", clip.KindText, 10, "0123456789..."},
		{"multibyte", "剪贴板管理器", clip.KindText, 3, "剪贴板..."},
		{"control chars", "a\nb\tc", clip.KindText, 10, "a b c"},
		{"unbounded", "abcdef", clip.KindText, 0, "abcdef"},
		{"image", "data:image/png;base64,AAAA", clip.KindImage, 10, ImagePreview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MakePreview(tt.payload, tt.kind, tt.max); got != tt.want {
				t.Errorf("MakePreview(%q) = %q, want %q", tt.payload, got, tt.want)
			}
		})
	}
}

func TestEntryKeyNormalizesTextOnly(t *testing.T) {
	a := Entry{Kind: clip.KindText, Payload: "  x \n"}
	b := Entry{Kind: clip.KindText, Payload: "x"}
	if a.key() != b.key() {
		t.Fatal("text keys should ignore surrounding whitespace")
	}
	c := Entry{Kind: clip.KindImage, Payload: "x "}
	d := Entry{Kind: clip.KindImage, Payload: "x"}
	if c.key() == d.key() {
		t.Fatal("image keys must not be normalized")
	}
	if b.key() == d.key() {
		t.Fatal("kind must be part of the key")
	}
}
