package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Name is used for the config file, the env prefix and the data directory.
const Name = "clipmgr"

// SearchPaths lists the directories searched for clipmgr.toml in order. The
// first file found wins.
func SearchPaths() []string {
	paths := []string{"/etc/clipmgr/"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", Name))
	}
	return paths
}

// UserConfigFile is where "clipmgr config init" writes by default.
func UserConfigFile() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", Name, Name+".toml")
	}
	return Name + ".toml"
}

// ReadInto registers the defaults, reads the config file (explicit path or
// the search paths) and enables CLIPMGR_* env overrides. Nested keys map to
// env names by replacing dots with underscores, e.g.
// CLIPMGR_CLIPBOARD_MAXHISTORY.
func ReadInto(v *viper.Viper, configFile string) error {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("toml")
		for _, p := range SearchPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix(strings.ToUpper(Name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return nil
}
