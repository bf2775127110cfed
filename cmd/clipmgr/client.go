package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/XianJunYe/clipboard-manager/internal/clip"
	"github.com/XianJunYe/clipboard-manager/internal/history"
	"github.com/XianJunYe/clipboard-manager/internal/ipc"
	"github.com/XianJunYe/clipboard-manager/internal/message"
	"github.com/XianJunYe/clipboard-manager/internal/paste"
)

// addSocketFlag adds the --socket flag to a client command.
func addSocketFlag(cmd *cobra.Command) {
	cmd.Flags().String("socket", "", "daemon socket path (default: $CLIPMGR_SOCKET, $XDG_RUNTIME_DIR/clipmgr.sock or $TMPDIR/clipmgr.sock)")
}

func socketOf(cmd *cobra.Command) string {
	if s, _ := cmd.Flags().GetString("socket"); s != "" {
		return s
	}
	return ipc.SocketPath()
}

// call sends req to the daemon the command points at.
func call(cmd *cobra.Command, req *message.Message) (*message.Message, error) {
	return ipc.Call(socketOf(cmd), req)
}

// entriesCmd builds a command that sends a request and prints the returned
// entries.
func entriesCmd(use, short string, typ message.Type) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := call(cmd, &message.Message{Type: typ})
			if err != nil {
				return err
			}
			return printEntries(cmd, os.Stdout, resp.Entries)
		},
	}
	cmd.Flags().Bool("json", false, "output raw JSON")
	addSocketFlag(cmd)
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the clipboard history, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, _ := cmd.Flags().GetInt("n")
			resp, err := call(cmd, &message.Message{Type: message.TypeList, Limit: n})
			if err != nil {
				return err
			}
			return printEntries(cmd, os.Stdout, resp.Entries)
		},
	}
	cmd.Flags().IntP("n", "n", 0, "show at most n entries (0 = all)")
	cmd.Flags().Bool("json", false, "output raw JSON")
	addSocketFlag(cmd)
	return cmd
}

func newOpenCmd() *cobra.Command {
	return entriesCmd("open", "Open the quick picker over the focused application", message.TypeOpen)
}

func newDetailCmd() *cobra.Command {
	return entriesCmd("detail", "Swap the quick picker for the full history view", message.TypeDetail)
}

func newBackCmd() *cobra.Command {
	return entriesCmd("back", "Return from the full history view to the quick picker", message.TypeBack)
}

func newToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Open the quick picker, or close it if it is open",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := call(cmd, &message.Message{Type: message.TypeToggle})
			if err != nil {
				return err
			}
			if !resp.Visible {
				return nil
			}
			return printEntries(cmd, os.Stdout, resp.Entries)
		},
	}
	cmd.Flags().Bool("json", false, "output raw JSON")
	addSocketFlag(cmd)
	return cmd
}

func newCloseCmd() *cobra.Command {
	return simpleCmd("close", "Close the quick picker and restore focus", message.TypeClose, nil)
}

func newClearCmd() *cobra.Command {
	return simpleCmd("clear", "Delete the whole clipboard history", message.TypeClear, nil)
}

func newDedupCmd() *cobra.Command {
	return simpleCmd("dedup", "Remove duplicate entries, keeping the most recent copy", message.TypeDedup,
		func(resp *message.Message) {
			fmt.Printf("removed %d %s\n", resp.Removed, plural(resp.Removed, "entry", "entries"))
		})
}

func simpleCmd(use, short string, typ message.Type, report func(*message.Message)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := call(cmd, &message.Message{Type: typ})
			if err != nil {
				return err
			}
			if report != nil {
				report(resp)
			}
			return nil
		},
	}
	addSocketFlag(cmd)
	return cmd
}

func newSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select INDEX",
		Short: "Paste the picker entry at INDEX (1 = most recent) and close the picker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("INDEX must be a positive integer, got %q", args[0])
			}
			resp, err := call(cmd, &message.Message{Type: message.TypeSelect, Index: n - 1})
			if err != nil {
				return err
			}
			return reportPaste(resp)
		},
	}
	addSocketFlag(cmd)
	return cmd
}

func newPasteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paste ID",
		Short: "Paste the history entry with the given ID or unique ID prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveID(cmd, args[0])
			if err != nil {
				return err
			}
			resp, err := call(cmd, &message.Message{Type: message.TypePaste, ID: id})
			if err != nil {
				return err
			}
			return reportPaste(resp)
		},
	}
	addSocketFlag(cmd)
	return cmd
}

// resolveID expands a unique prefix, as printed by list, to a full entry ID.
func resolveID(cmd *cobra.Command, prefix string) (string, error) {
	resp, err := call(cmd, &message.Message{Type: message.TypeList})
	if err != nil {
		return "", err
	}
	var match []string
	for _, e := range resp.Entries {
		if e.ID == prefix {
			return e.ID, nil
		}
		if strings.HasPrefix(e.ID, prefix) {
			match = append(match, e.ID)
		}
	}
	switch len(match) {
	case 0:
		return "", fmt.Errorf("no entry with ID %q", prefix)
	case 1:
		return match[0], nil
	default:
		return "", fmt.Errorf("ID prefix %q is ambiguous (%d entries)", prefix, len(match))
	}
}

// reportPaste prints the outcome. Exhaustion is not an error: the entry is on
// the clipboard and can be pasted by hand.
func reportPaste(resp *message.Message) error {
	res := resp.Paste
	if res == nil {
		return fmt.Errorf("daemon returned no paste result")
	}
	switch res.State {
	case paste.StateDone:
		fmt.Printf("pasted (%s)\n", res.Strategy)
	case paste.StateExhausted:
		fmt.Fprintf(os.Stderr, "automatic paste failed after %d attempts; entry is on the clipboard\n", len(res.Attempts))
	default:
		return fmt.Errorf("paste %s: %s", res.State, resp.Error)
	}
	return nil
}

func newCurrentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "current",
		Short: "Print the current clipboard content (images as PNG)",
		Long: `Writes the current clipboard content to stdout. Images are written as raw
PNG bytes:

  clipmgr current > screenshot.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := call(cmd, &message.Message{Type: message.TypeCurrent})
			if err != nil {
				return err
			}
			if resp.Content == nil {
				return nil
			}
			return writeSnapshot(os.Stdout, *resp.Content)
		},
	}
	addSocketFlag(cmd)
	return cmd
}

func writeSnapshot(w io.Writer, s clip.Snapshot) error {
	if s.Kind == clip.KindImage {
		png, err := clip.DecodeImage(s.Payload)
		if err != nil {
			return err
		}
		_, err = w.Write(png)
		return err
	}
	_, err := io.WriteString(w, s.Payload)
	return err
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream session events (history changes, picker state, pastes)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			wc, err := ipc.Dial(socketOf(cmd))
			if err != nil {
				return err
			}
			defer wc.Close()
			if err := wc.WriteMsg(&message.Message{Type: message.TypeWatch}); err != nil {
				return fmt.Errorf("send watch: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			for {
				msg, err := wc.ReadMsg()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return fmt.Errorf("watch: %w", err)
				}
				if msg.Event == nil {
					continue
				}
				ev := msg.Event
				if jsonOut {
					if err := enc.Encode(ev); err != nil {
						return err
					}
					continue
				}
				line := fmt.Sprintf("%s  %s", ev.At.Format("15:04:05"), ev.Type)
				if ev.Entries != nil {
					line += fmt.Sprintf("  %d %s", len(ev.Entries), plural(len(ev.Entries), "entry", "entries"))
				}
				if ev.Paste != nil {
					line += fmt.Sprintf("  %s %s", ev.Paste.State, ev.Paste.Strategy)
				}
				fmt.Println(strings.TrimRight(line, " "))
			}
		},
	}
	cmd.Flags().Bool("json", false, "output one JSON event per line")
	addSocketFlag(cmd)
	return cmd
}

func printEntries(cmd *cobra.Command, w io.Writer, entries []history.Entry) error {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "History is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "#\tID\tKIND\tCOPIED\tCONTENT\n")
	for i, e := range entries {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, shortID(e.ID), e.Kind, humanize.Time(e.Created()), describe(e))
	}
	return tw.Flush()
}

func describe(e history.Entry) string {
	if e.Kind == clip.KindImage {
		if png, err := clip.DecodeImage(e.Payload); err == nil {
			return fmt.Sprintf("%s (%s)", e.Preview, humanize.Bytes(uint64(len(png))))
		}
	}
	return e.Preview
}

// shortID trims UUIDs for display; paste accepts any unique prefix.
func shortID(id string) string {
	if len(id) > 13 {
		return id[:13]
	}
	return id
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
