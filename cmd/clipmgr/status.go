package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/XianJunYe/clipboard-manager/internal/message"
	"github.com/XianJunYe/clipboard-manager/internal/session"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, picker and watcher state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := call(cmd, &message.Message{Type: message.TypeStatus})
			if err != nil {
				return err
			}
			if resp.Status == nil {
				return fmt.Errorf("daemon returned no status")
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp.Status)
			}
			printStatus(*resp.Status, socketOf(cmd))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output raw JSON")
	addSocketFlag(cmd)
	return cmd
}

func printStatus(st session.Status, socket string) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Socket:\t%s\n", socket)
	fmt.Fprintf(w, "History:\t%s %s\n", humanize.Comma(int64(st.Entries)), plural(st.Entries, "entry", "entries"))
	fmt.Fprintf(w, "Picker:\t%s\n", visibility(st.PickerVisible))
	fmt.Fprintf(w, "Detail view:\t%s\n", visibility(st.DetailVisible))
	if st.FocusApp != "" {
		fmt.Fprintf(w, "Return focus to:\t%s\n", st.FocusApp)
	}

	ws := st.Watcher
	state := "stopped"
	if ws.Running {
		state = "running"
	}
	fmt.Fprintf(w, "Watcher:\t%s, polling every %s\n", state, ws.Interval)
	fmt.Fprintf(w, "Idle samples:\t%d\n", ws.NoChange)
	if ws.LastPreview != "" {
		fmt.Fprintf(w, "Last seen:\t[%s] %s\n", ws.LastKind, ws.LastPreview)
	}
	_ = w.Flush()
}

func visibility(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}
