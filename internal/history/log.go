package history

import (
	"context"
	"log/slog"

	"github.com/XianJunYe/clipboard-manager/internal/clip"
)

// LogEntry logs a history event at INFO (kind, id, history size) and DEBUG
// (text preview up to 120 chars, or payload size for images).
func LogEntry(event string, e Entry, count int) {
	slog.Info(event, "kind", e.Kind, "id", e.ID, "count", count)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	if e.Kind == clip.KindText {
		slog.Debug("clipboard entry", "id", e.ID, "preview", MakePreview(e.Payload, e.Kind, 120))
	} else {
		slog.Debug("clipboard entry", "id", e.ID, "size_bytes", len(e.Payload))
	}
}
