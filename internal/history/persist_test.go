package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/XianJunYe/clipboard-manager/internal/clip"
)

func sampleEntries() []Entry {
	return []Entry{
		{ID: "2", Kind: clip.KindText, Payload: "second", Preview: "second", CreatedAt: 2},
		{ID: "1", Kind: clip.KindImage, Payload: clip.EncodeImage([]byte{1}), Preview: ImagePreview, CreatedAt: 1},
	}
}

func TestJSONFileMissingIsEmpty(t *testing.T) {
	f, err := NewJSONFile(filepath.Join(t.TempDir(), "nested", "history.json"))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := f.Load()
	if err != nil || len(entries) != 0 {
		t.Fatalf("Load = %v, %v", entries, err)
	}
}

func TestJSONFileSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	f, _ := NewJSONFile(path)
	if err := f.Save(sampleEntries()); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var generic []map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("file is not a JSON list: %v", err)
	}
	for _, key := range []string{"id", "kind", "payload", "preview", "createdAt"} {
		if _, ok := generic[0][key]; !ok {
			t.Errorf("record missing %q: %v", key, generic[0])
		}
	}
	if generic[0]["kind"] != "text" || generic[1]["kind"] != "image" {
		t.Errorf("unexpected kinds: %v", generic)
	}
	if _, ok := generic[0]["createdAt"].(float64); !ok {
		t.Errorf("createdAt should be a number")
	}
}

func TestJSONFileEmptyIsList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	f, _ := NewJSONFile(path)
	if err := f.Save(nil); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "[]" {
		t.Fatalf("empty history written as %q", raw)
	}
}

func TestJSONFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f, _ := NewJSONFile(filepath.Join(dir, "history.json"))
	for range 3 {
		if err := f.Save(sampleEntries()); err != nil {
			t.Fatal(err)
		}
	}
	files, _ := os.ReadDir(dir)
	if len(files) != 1 {
		t.Fatalf("expected only history.json, found %d files", len(files))
	}
}

// A crash after the temp file is written but before the rename must leave the
// previous history readable and unchanged.
func TestJSONFileInterruptedSaveKeepsPreviousState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	f, _ := NewJSONFile(path)
	before := sampleEntries()
	if err := f.Save(before); err != nil {
		t.Fatal(err)
	}

	partial := filepath.Join(dir, ".history-crash.tmp")
	if err := os.WriteFile(partial, []byte(`[{"id":"3","kind":"te`), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load after interrupted save: %v", err)
	}
	if len(got) != len(before) || got[0].ID != before[0].ID {
		t.Fatalf("history changed by interrupted save: %+v", got)
	}
}

func TestJSONFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, _ := NewJSONFile(path)
	if _, err := f.Load(); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if got, err := db.Load(); err != nil || len(got) != 0 {
		t.Fatalf("fresh Load = %v, %v", got, err)
	}
	want := sampleEntries()
	if err := db.Save(want); err != nil {
		t.Fatal(err)
	}
	got, err := db.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSQLiteFailedSaveKeepsPreviousState(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.Save(sampleEntries()); err != nil {
		t.Fatal(err)
	}
	dupIDs := []Entry{
		{ID: "x", Kind: clip.KindText, Payload: "a"},
		{ID: "x", Kind: clip.KindText, Payload: "b"},
	}
	if err := db.Save(dupIDs); err == nil {
		t.Fatal("expected unique constraint failure")
	}
	got, err := db.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "2" {
		t.Fatalf("failed save leaked partial state: %+v", got)
	}
}
