package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":  FormatJSON,
		"JSON":  FormatJSON,
		"text":  FormatText,
		"human": FormatText,
		"auto":  FormatAuto,
		"bogus": FormatAuto,
		"":      FormatAuto,
	}
	for in, want := range tests {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		interactive bool
		level       string
		want        slog.Level
	}{
		{false, "", slog.LevelInfo},
		{true, "", slog.LevelDebug},
		{true, "warn", slog.LevelWarn},
		{false, "error", slog.LevelError},
		{false, "nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := Resolve(tt.interactive, tt.level); got != tt.want {
			t.Errorf("Resolve(%v, %q) = %v, want %v", tt.interactive, tt.level, got, tt.want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, FormatAuto, slog.LevelInfo)
	log.Debug("hidden")
	log.Info("clipboard entry added", "kind", "text", "count", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("non-terminal auto output should be one JSON record: %v\n%s", err, buf.String())
	}
	if rec["msg"] != "clipboard entry added" || rec["kind"] != "text" {
		t.Fatalf("record = %v", rec)
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatText, slog.LevelDebug).Debug("sampling", "interval", "200ms")
	out := buf.String()
	if !strings.Contains(out, "sampling") || !strings.Contains(out, "interval=200ms") {
		t.Fatalf("output = %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatal("colour codes written to a non-terminal")
	}
}
