package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/XianJunYe/clipboard-manager/internal/automation"
	"github.com/XianJunYe/clipboard-manager/internal/clip"
	"github.com/XianJunYe/clipboard-manager/internal/config"
	"github.com/XianJunYe/clipboard-manager/internal/focus"
	"github.com/XianJunYe/clipboard-manager/internal/history"
	"github.com/XianJunYe/clipboard-manager/internal/httpapi"
	"github.com/XianJunYe/clipboard-manager/internal/hub"
	"github.com/XianJunYe/clipboard-manager/internal/ipc"
	"github.com/XianJunYe/clipboard-manager/internal/paste"
	"github.com/XianJunYe/clipboard-manager/internal/session"
	"github.com/XianJunYe/clipboard-manager/internal/watcher"
	"github.com/XianJunYe/clipboard-manager/internal/wire"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Watch the clipboard and serve picker requests",
		Long: `Starts the clipboard watcher and keeps the history. CLI commands reach the
daemon over a local socket; the optional HTTP API (--http-addr or http.addr) serves
a web picker with live updates over /ws.

Config file search order:
  /etc/clipmgr/clipmgr.toml
  $HOME/.config/clipmgr/clipmgr.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPMGR_* env vars → flags`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindViper(cmd, v); err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("http-addr") {
				_ = v.BindPFlag("http.addr", f.Lookup("http-addr"))
			}
			if f.Changed("backend") {
				_ = v.BindPFlag("clipboard.backend", f.Lookup("backend"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String("socket", "", "IPC socket path (default: $CLIPMGR_SOCKET, $XDG_RUNTIME_DIR/clipmgr.sock or $TMPDIR/clipmgr.sock)")
	f.String("http-addr", "", "serve the HTTP API on this address, e.g. 127.0.0.1:8753")
	f.String("backend", "auto", "clipboard backend: auto|native|exec|headless")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	socket := v.GetString("socket")
	if socket == "" {
		socket = ipc.SocketPath()
	}

	slog.Info("clipmgr daemon starting",
		"version", Version,
		"history", cfg.Clipboard.HistoryFile,
		"storage", cfg.Clipboard.Storage,
		"max_history", cfg.Clipboard.MaxHistory,
	)

	backend, err := clip.New(clip.ParseMode(cfg.Clipboard.Backend))
	if err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	defer backend.Close()
	slog.Info("clipboard backend", "name", backend.Name())

	p, err := openPersister(cfg.Clipboard)
	if err != nil {
		return err
	}
	store, err := history.Open(p, history.Options{
		MaxHistory:     cfg.Clipboard.MaxHistory,
		MaxTextPreview: cfg.Clipboard.MaxTextPreview,
	})
	if err != nil {
		_ = p.Close()
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing history failed", "err", err)
		}
	}()

	w := watcher.New(backend, store, watcher.Config{
		BaseInterval:  config.Millis(cfg.Clipboard.CheckInterval),
		MaxInterval:   config.Millis(cfg.Performance.MaxCheckInterval),
		SlowdownAfter: cfg.Performance.MaxConsecutiveNoChangeBeforeSlowdown,
	})

	auto := automation.New()
	slog.Info("platform automation", "name", auto.Name())
	tracker := focus.New(auto)
	executor := paste.NewExecutor(w, tracker, paste.DefaultStrategies(auto, cfg.Paste.MenuLabels), paste.Config{
		FocusRestoreDelay: config.Millis(cfg.UI.RestoreAppDelay),
		PasteDelay:        config.Millis(cfg.UI.PasteDelay),
		RetryDelay:        config.Millis(cfg.UI.PasteRetryDelay),
		AttemptTimeout:    automationTimeout,
	})

	sess := session.New(store, w, tracker, executor, hub.New(), session.Options{
		QuickSelectMaxItems: cfg.UI.QuickSelectMaxItems,
		DeduplicateOnStart:  cfg.Clipboard.DeduplicateOnStart,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ipcLn, err := ipc.Listen(socket)
	if err != nil {
		return fmt.Errorf("ipc socket: %w", err)
	}
	defer os.Remove(socket)
	slog.Info("IPC socket listening", "path", socket)

	var httpLn net.Listener
	if cfg.HTTP.Addr != "" {
		httpLn, err = net.Listen("tcp", cfg.HTTP.Addr)
		if err != nil {
			_ = ipcLn.Close()
			return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	sess.Start(gctx)
	defer sess.Stop()

	g.Go(func() error {
		return ipc.Serve(gctx, ipcLn, func(ctx context.Context, wc *wire.Conn) {
			handleIPCConn(ctx, wc, sess)
		})
	})
	if httpLn != nil {
		g.Go(func() error { return httpapi.New(sess).Serve(gctx, httpLn) })
	}

	err = g.Wait()
	slog.Info("clipmgr daemon stopping")
	return err
}

func openPersister(c config.ClipboardConfig) (history.Persister, error) {
	if c.Storage == config.StorageSQLite {
		db, err := history.OpenSQLite(c.HistoryFile)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	f, err := history.NewJSONFile(c.HistoryFile)
	if err != nil {
		return nil, err
	}
	return f, nil
}
