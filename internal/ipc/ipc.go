// Package ipc provides the local Unix-socket channel used by the clipmgr CLI
// to talk to a running daemon.
//
// The channel carries wire-framed message.Message values: the client writes
// one request and reads the response (or, for WATCH, a stream of events).
package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/XianJunYe/clipboard-manager/internal/message"
	"github.com/XianJunYe/clipboard-manager/internal/wire"
)

const dialTimeout = 2 * time.Second

// ErrNotRunning is returned when no daemon is listening on the socket.
var ErrNotRunning = errors.New("clipmgr daemon is not running")

// SocketPath returns the path of the IPC socket:
//
//   - $CLIPMGR_SOCKET if set
//   - $XDG_RUNTIME_DIR/clipmgr.sock on Linux sessions
//   - $TMPDIR/clipmgr.sock otherwise
func SocketPath() string {
	if s := os.Getenv("CLIPMGR_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "clipmgr.sock")
	}
	return filepath.Join(os.TempDir(), "clipmgr.sock")
}

// IsRunning reports whether a daemon appears to be listening on path. It does
// a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on path. A stale socket left by a crashed run is
// removed first; a live one is an error.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, fmt.Errorf("another daemon is listening on %s", path)
	}
	_ = os.Remove(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	return net.Listen("unix", path)
}

// Handler serves one accepted connection. It must return when ctx is done.
type Handler func(ctx context.Context, wc *wire.Conn)

// Serve accepts connections on ln until ctx is done, then closes ln and
// waits for in-flight handlers.
func Serve(ctx context.Context, ln net.Listener, h Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("ipc accept failed", "err", err)
			return fmt.Errorf("ipc accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			wc := wire.New(conn)
			defer wc.Close()
			h(ctx, wc)
		}()
	}
}

// Dial connects to the daemon at path.
func Dial(path string) (*wire.Conn, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %w", ErrNotRunning, path, err)
	}
	return wire.New(conn), nil
}

// Call sends req to the daemon at path and returns its single response. An
// ERROR response is returned as an error.
func Call(path string, req *message.Message) (*message.Message, error) {
	wc, err := Dial(path)
	if err != nil {
		return nil, err
	}
	defer wc.Close()

	if err := wc.WriteMsg(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Type, err)
	}
	resp, err := wc.ReadMsg()
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.Type, err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}
