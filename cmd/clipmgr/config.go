package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/XianJunYe/clipboard-manager/internal/config"
	"github.com/XianJunYe/clipboard-manager/internal/logging"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLIPMGR_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → CLIPMGR_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if err := config.ReadInto(v, configFlag); err != nil {
		return err
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	logging.Setup(
		logging.ParseFormat(v.GetString("log-format")),
		logging.Resolve(interactive, v.GetString("log-level")),
	)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the default configuration as TOML",
		Long: `Writes the built-in defaults to PATH, or to
$HOME/.config/clipmgr/clipmgr.toml when no path is given. Use "-" for stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.UserConfigFile()
			if len(args) == 1 {
				path = args[0]
			}
			if path == "-" {
				return config.Write(os.Stdout, config.Default())
			}
			force, _ := cmd.Flags().GetBool("force")
			if err := config.WriteFile(path, config.Default(), force); err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:     "show",
		Short:   "Print the effective configuration",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if v.GetBool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			if f := v.ConfigFileUsed(); f != "" {
				fmt.Printf("# loaded from %s\n", f)
			}
			return config.Write(os.Stdout, cfg)
		},
	}
	cmd.Flags().Bool("json", false, "output JSON instead of TOML")
	addConfigFlag(cmd)
	return cmd
}
