package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/XianJunYe/clipboard-manager/internal/automation"
)

func TestDefaultsLoad(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	v := viper.New()
	SetDefaults(v)
	c, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Clipboard.CheckInterval != 200 || c.Clipboard.MaxHistory != 50 || !c.Clipboard.DeduplicateOnStart {
		t.Errorf("clipboard = %+v", c.Clipboard)
	}
	if c.UI.PasteDelay != 5 || c.UI.RestoreAppDelay != 50 || c.UI.PasteRetryDelay != 10 || c.UI.QuickSelectMaxItems != 9 {
		t.Errorf("ui = %+v", c.UI)
	}
	if c.Performance.MaxCheckInterval != 2000 || c.Performance.MaxConsecutiveNoChangeBeforeSlowdown != 5 {
		t.Errorf("performance = %+v", c.Performance)
	}
	if len(c.Paste.MenuLabels) != 2 || c.Paste.MenuLabels[0] != automation.DefaultMenuPaths[0] {
		t.Errorf("menu labels = %+v", c.Paste.MenuLabels)
	}
	if want := filepath.Join("/data", "clipmgr", "history.json"); c.Clipboard.HistoryFile != want {
		t.Errorf("history file = %q, want %q", c.Clipboard.HistoryFile, want)
	}
}

func TestSQLiteDefaultPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	v := viper.New()
	SetDefaults(v)
	v.Set("clipboard.storage", "SQLite")
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(c.Clipboard.HistoryFile) != "history.db" {
		t.Fatalf("history file = %q", c.Clipboard.HistoryFile)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero max history", func(c *Config) { c.Clipboard.MaxHistory = 0 }, "maxHistory"},
		{"zero interval", func(c *Config) { c.Clipboard.CheckInterval = 0 }, "checkInterval must be positive"},
		{"max below base", func(c *Config) { c.Performance.MaxCheckInterval = 100 }, "maxCheckInterval"},
		{"bad backend", func(c *Config) { c.Clipboard.Backend = "x11" }, "clipboard.backend"},
		{"bad storage", func(c *Config) { c.Clipboard.Storage = "redis" }, "clipboard.storage"},
		{"negative delay", func(c *Config) { c.UI.PasteRetryDelay = -1 }, "ui delays"},
		{"empty menu label", func(c *Config) { c.Paste.MenuLabels = []automation.MenuPath{{Menu: "Edit"}} }, "menuLabels[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestReadIntoFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clipmgr.toml")
	body := `
[clipboard]
maxHistory = 7
checkInterval = 300

[[paste.menuLabels]]
menu = "Bearbeiten"
item = "Einsetzen"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLIPMGR_CLIPBOARD_CHECKINTERVAL", "400")

	v := viper.New()
	if err := ReadInto(v, path); err != nil {
		t.Fatalf("ReadInto: %v", err)
	}
	c, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Clipboard.MaxHistory != 7 {
		t.Errorf("maxHistory = %d, want 7 from file", c.Clipboard.MaxHistory)
	}
	if c.Clipboard.CheckInterval != 400 {
		t.Errorf("checkInterval = %d, want 400 from env", c.Clipboard.CheckInterval)
	}
	if len(c.Paste.MenuLabels) != 1 || c.Paste.MenuLabels[0].Item != "Einsetzen" {
		t.Errorf("menu labels = %+v", c.Paste.MenuLabels)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "clipmgr.toml")
	want := Default()
	want.Clipboard.MaxHistory = 12
	if err := WriteFile(path, want, false); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFile(path, want, false); err == nil {
		t.Fatal("second WriteFile without overwrite should fail")
	}

	v := viper.New()
	if err := ReadInto(v, path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if got.Clipboard.MaxHistory != 12 || len(got.Paste.MenuLabels) != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestWriteIsTOML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Default()); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"[clipboard]", "maxHistory = 50", "[[paste.menuLabels]]"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("output missing %q:\n%s", s, buf.String())
		}
	}
}
