// Package config defines the clipmgr configuration, its defaults and the
// viper binding shared by every command.
//
// Precedence (lowest → highest): defaults → config file → CLIPMGR_* env vars → flags
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/XianJunYe/clipboard-manager/internal/automation"
)

// Storage backends for the history.
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

var backends = []string{"auto", "native", "exec", "headless"}

// Config is the full clipmgr configuration. Durations are milliseconds.
type Config struct {
	Clipboard   ClipboardConfig   `mapstructure:"clipboard" toml:"clipboard" json:"clipboard"`
	UI          UIConfig          `mapstructure:"ui" toml:"ui" json:"ui"`
	Performance PerformanceConfig `mapstructure:"performance" toml:"performance" json:"performance"`
	Paste       PasteConfig       `mapstructure:"paste" toml:"paste" json:"paste"`
	HTTP        HTTPConfig        `mapstructure:"http" toml:"http" json:"http"`
}

type ClipboardConfig struct {
	CheckInterval      int    `mapstructure:"checkInterval" toml:"checkInterval" json:"checkInterval"`
	MaxHistory         int    `mapstructure:"maxHistory" toml:"maxHistory" json:"maxHistory"`
	DeduplicateOnStart bool   `mapstructure:"deduplicateOnStart" toml:"deduplicateOnStart" json:"deduplicateOnStart"`
	MaxTextPreview     int    `mapstructure:"maxTextPreview" toml:"maxTextPreview" json:"maxTextPreview"`
	Backend            string `mapstructure:"backend" toml:"backend" json:"backend"`
	Storage            string `mapstructure:"storage" toml:"storage" json:"storage"`
	// HistoryFile is derived from Storage when empty.
	HistoryFile string `mapstructure:"historyFile" toml:"historyFile" json:"historyFile"`
}

type UIConfig struct {
	PasteDelay          int `mapstructure:"pasteDelay" toml:"pasteDelay" json:"pasteDelay"`
	RestoreAppDelay     int `mapstructure:"restoreAppDelay" toml:"restoreAppDelay" json:"restoreAppDelay"`
	QuickSelectMaxItems int `mapstructure:"quickSelectMaxItems" toml:"quickSelectMaxItems" json:"quickSelectMaxItems"`
	PasteRetryDelay     int `mapstructure:"pasteRetryDelay" toml:"pasteRetryDelay" json:"pasteRetryDelay"`
}

type PerformanceConfig struct {
	MaxConsecutiveNoChangeBeforeSlowdown int `mapstructure:"maxConsecutiveNoChangeBeforeSlowdown" toml:"maxConsecutiveNoChangeBeforeSlowdown" json:"maxConsecutiveNoChangeBeforeSlowdown"`
	MaxCheckInterval                     int `mapstructure:"maxCheckInterval" toml:"maxCheckInterval" json:"maxCheckInterval"`
}

type PasteConfig struct {
	// MenuLabels are tried in order by the menu paste strategy.
	MenuLabels []automation.MenuPath `mapstructure:"menuLabels" toml:"menuLabels" json:"menuLabels"`
}

type HTTPConfig struct {
	// Addr enables the local HTTP API when non-empty, e.g. "127.0.0.1:8753".
	Addr string `mapstructure:"addr" toml:"addr" json:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Clipboard: ClipboardConfig{
			CheckInterval:      200,
			MaxHistory:         50,
			DeduplicateOnStart: true,
			MaxTextPreview:     100,
			Backend:            "auto",
			Storage:            StorageJSON,
		},
		UI: UIConfig{
			PasteDelay:          5,
			RestoreAppDelay:     50,
			QuickSelectMaxItems: 9,
			PasteRetryDelay:     10,
		},
		Performance: PerformanceConfig{
			MaxConsecutiveNoChangeBeforeSlowdown: 5,
			MaxCheckInterval:                     2000,
		},
		Paste: PasteConfig{
			MenuLabels: slices.Clone(automation.DefaultMenuPaths),
		},
	}
}

// SetDefaults registers every key with v so env vars and Unmarshal see them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("clipboard.checkInterval", d.Clipboard.CheckInterval)
	v.SetDefault("clipboard.maxHistory", d.Clipboard.MaxHistory)
	v.SetDefault("clipboard.deduplicateOnStart", d.Clipboard.DeduplicateOnStart)
	v.SetDefault("clipboard.maxTextPreview", d.Clipboard.MaxTextPreview)
	v.SetDefault("clipboard.backend", d.Clipboard.Backend)
	v.SetDefault("clipboard.storage", d.Clipboard.Storage)
	v.SetDefault("clipboard.historyFile", d.Clipboard.HistoryFile)
	v.SetDefault("ui.pasteDelay", d.UI.PasteDelay)
	v.SetDefault("ui.restoreAppDelay", d.UI.RestoreAppDelay)
	v.SetDefault("ui.quickSelectMaxItems", d.UI.QuickSelectMaxItems)
	v.SetDefault("ui.pasteRetryDelay", d.UI.PasteRetryDelay)
	v.SetDefault("performance.maxConsecutiveNoChangeBeforeSlowdown", d.Performance.MaxConsecutiveNoChangeBeforeSlowdown)
	v.SetDefault("performance.maxCheckInterval", d.Performance.MaxCheckInterval)

	labels := make([]map[string]string, len(d.Paste.MenuLabels))
	for i, m := range d.Paste.MenuLabels {
		labels[i] = map[string]string{"menu": m.Menu, "item": m.Item}
	}
	v.SetDefault("paste.menuLabels", labels)
	v.SetDefault("http.addr", d.HTTP.Addr)
}

// Load decodes v into a Config, fills derived values and validates it.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c.Clipboard.Storage = strings.ToLower(c.Clipboard.Storage)
	c.Clipboard.Backend = strings.ToLower(c.Clipboard.Backend)
	if c.Clipboard.HistoryFile == "" {
		c.Clipboard.HistoryFile = DefaultHistoryFile(c.Clipboard.Storage)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Clipboard.MaxHistory < 1 {
		errs = append(errs, fmt.Errorf("clipboard.maxHistory must be at least 1, got %d", c.Clipboard.MaxHistory))
	}
	if c.Clipboard.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("clipboard.checkInterval must be positive, got %d", c.Clipboard.CheckInterval))
	}
	if c.Clipboard.MaxTextPreview < 1 {
		errs = append(errs, fmt.Errorf("clipboard.maxTextPreview must be positive, got %d", c.Clipboard.MaxTextPreview))
	}
	if !slices.Contains(backends, c.Clipboard.Backend) {
		errs = append(errs, fmt.Errorf("clipboard.backend must be one of %s, got %q", strings.Join(backends, "|"), c.Clipboard.Backend))
	}
	if c.Clipboard.Storage != StorageJSON && c.Clipboard.Storage != StorageSQLite {
		errs = append(errs, fmt.Errorf("clipboard.storage must be json or sqlite, got %q", c.Clipboard.Storage))
	}
	if c.Performance.MaxCheckInterval < c.Clipboard.CheckInterval {
		errs = append(errs, fmt.Errorf("performance.maxCheckInterval (%d) must not be below clipboard.checkInterval (%d)",
			c.Performance.MaxCheckInterval, c.Clipboard.CheckInterval))
	}
	if c.Performance.MaxConsecutiveNoChangeBeforeSlowdown < 0 {
		errs = append(errs, errors.New("performance.maxConsecutiveNoChangeBeforeSlowdown must not be negative"))
	}
	if c.UI.PasteDelay < 0 || c.UI.RestoreAppDelay < 0 || c.UI.PasteRetryDelay < 0 {
		errs = append(errs, errors.New("ui delays must not be negative"))
	}
	if c.UI.QuickSelectMaxItems < 1 {
		errs = append(errs, fmt.Errorf("ui.quickSelectMaxItems must be at least 1, got %d", c.UI.QuickSelectMaxItems))
	}
	for i, m := range c.Paste.MenuLabels {
		if m.Menu == "" || m.Item == "" {
			errs = append(errs, fmt.Errorf("paste.menuLabels[%d] needs both menu and item", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Millis converts a millisecond setting to a Duration.
func Millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// DataDir returns $XDG_DATA_HOME/clipmgr, falling back to
// $HOME/.local/share/clipmgr.
func DataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, "clipmgr")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "clipmgr")
	}
	return filepath.Join(os.TempDir(), "clipmgr")
}

// DefaultHistoryFile returns the history path for the given storage backend.
func DefaultHistoryFile(storage string) string {
	if storage == StorageSQLite {
		return filepath.Join(DataDir(), "history.db")
	}
	return filepath.Join(DataDir(), "history.json")
}

// Write encodes c as TOML.
func Write(w io.Writer, c Config) error {
	return toml.NewEncoder(w).Encode(c)
}

// WriteFile writes c to path, creating parent directories. An existing file
// is only replaced when overwrite is set.
func WriteFile(path string, c Config, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if err := Write(f, c); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
