// clipmgr: clipboard history with quick paste-back.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipmgr",
		Short: "Clipboard history with quick paste-back",
		Long: `clipmgr records everything copied to the system clipboard and pastes
earlier entries back into the application you were working in.

Run "clipmgr daemon" once per desktop session. The other commands talk to the
daemon over a local socket; bind them to hotkeys or a launcher to build a
picker ("clipmgr toggle", "clipmgr select 1", ...).

Config file search order (first found wins):
  /etc/clipmgr/clipmgr.toml
  $HOME/.config/clipmgr/clipmgr.toml
  path supplied via --config

All settings can be set via CLIPMGR_<SECTION>_<KEY> env vars, e.g.
CLIPMGR_CLIPBOARD_MAXHISTORY=100. See "clipmgr config init".`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newListCmd(),
		newOpenCmd(),
		newCloseCmd(),
		newToggleCmd(),
		newSelectCmd(),
		newPasteCmd(),
		newDetailCmd(),
		newBackCmd(),
		newClearCmd(),
		newDedupCmd(),
		newCurrentCmd(),
		newStatusCmd(),
		newWatchCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("clipmgr %s\n", Version)
		},
	}
}
