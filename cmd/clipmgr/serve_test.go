package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/XianJunYe/clipboard-manager/internal/automation"
	"github.com/XianJunYe/clipboard-manager/internal/clip"
	"github.com/XianJunYe/clipboard-manager/internal/focus"
	"github.com/XianJunYe/clipboard-manager/internal/history"
	"github.com/XianJunYe/clipboard-manager/internal/hub"
	"github.com/XianJunYe/clipboard-manager/internal/ipc"
	"github.com/XianJunYe/clipboard-manager/internal/message"
	"github.com/XianJunYe/clipboard-manager/internal/paste"
	"github.com/XianJunYe/clipboard-manager/internal/session"
	"github.com/XianJunYe/clipboard-manager/internal/watcher"
	"github.com/XianJunYe/clipboard-manager/internal/wire"
)

// menuOnly accepts only the menu strategy, like an app that swallows
// synthetic keystrokes.
type menuOnly struct{}

func (menuOnly) Name() string                                                 { return "test" }
func (menuOnly) ForegroundApp(context.Context) (string, error)                { return "Editor", nil }
func (menuOnly) Activate(context.Context, string) error                       { return nil }
func (menuOnly) SendPaste(context.Context) error                              { return errors.New("blocked") }
func (menuOnly) SendPasteToFrontmost(context.Context) error                   { return errors.New("blocked") }
func (menuOnly) InvokeMenuPaste(context.Context, []automation.MenuPath) error { return nil }

func startTestDaemon(t *testing.T) (string, clip.Backend, *watcher.Watcher) {
	t.Helper()

	backend, err := clip.New(clip.ModeHeadless)
	if err != nil {
		t.Fatal(err)
	}
	p, err := history.NewJSONFile(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatal(err)
	}
	store, err := history.Open(p, history.Options{MaxHistory: 10, MaxTextPreview: 20})
	if err != nil {
		t.Fatal(err)
	}
	w := watcher.New(backend, store, watcher.Config{BaseInterval: time.Hour, MaxInterval: time.Hour})
	tracker := focus.New(menuOnly{})
	x := paste.NewExecutor(w, tracker, paste.DefaultStrategies(menuOnly{}, nil), paste.Config{})
	x.Sleep = func(time.Duration) {}
	sess := session.New(store, w, tracker, x, hub.New(), session.Options{QuickSelectMaxItems: 3})

	dir, err := os.MkdirTemp("", "cm")
	if err != nil {
		t.Fatal(err)
	}
	sock := filepath.Join(dir, "d.sock")
	ln, err := ipc.Listen(sock)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ipc.Serve(ctx, ln, func(ctx context.Context, wc *wire.Conn) { handleIPCConn(ctx, wc, sess) })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = os.RemoveAll(dir)
	})
	return sock, backend, w
}

func TestDaemonRequests(t *testing.T) {
	sock, backend, w := startTestDaemon(t)

	for _, s := range []string{"first", "second", "third"} {
		if err := backend.Write(clip.TextSnapshot(s)); err != nil {
			t.Fatal(err)
		}
		if _, changed := w.CheckOnce(); !changed {
			t.Fatalf("%q not detected", s)
		}
	}

	resp, err := ipc.Call(sock, &message.Message{Type: message.TypeList, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) != 2 || resp.Entries[0].Payload != "third" {
		t.Fatalf("list = %+v", resp.Entries)
	}

	resp, err = ipc.Call(sock, &message.Message{Type: message.TypeOpen})
	if err != nil || len(resp.Entries) != 3 {
		t.Fatalf("open = %+v, %v", resp, err)
	}

	resp, err = ipc.Call(sock, &message.Message{Type: message.TypeSelect, Index: 2})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Paste == nil || resp.Paste.State != paste.StateDone || resp.Paste.Strategy != "menu" {
		t.Fatalf("select = %+v", resp.Paste)
	}

	// The pasted entry is on the clipboard but is not re-recorded.
	resp, err = ipc.Call(sock, &message.Message{Type: message.TypeCurrent})
	if err != nil || resp.Content == nil || resp.Content.Payload != "first" {
		t.Fatalf("current = %+v, %v", resp, err)
	}
	if _, changed := w.CheckOnce(); changed {
		t.Fatal("own write detected as a change")
	}

	resp, err = ipc.Call(sock, &message.Message{Type: message.TypeStatus})
	if err != nil || resp.Status.Entries != 3 || resp.Status.PickerVisible || resp.Status.FocusApp != "Editor" {
		t.Fatalf("status = %+v, %v", resp.Status, err)
	}

	if _, err := ipc.Call(sock, &message.Message{Type: message.TypePaste, ID: "nope"}); err == nil {
		t.Fatal("paste of unknown ID should fail")
	}
	if _, err := ipc.Call(sock, &message.Message{Type: "REBOOT"}); err == nil {
		t.Fatal("unknown request should fail")
	}

	if _, err := ipc.Call(sock, &message.Message{Type: message.TypeClear}); err != nil {
		t.Fatal(err)
	}
	resp, err = ipc.Call(sock, &message.Message{Type: message.TypeList})
	if err != nil || len(resp.Entries) != 0 {
		t.Fatalf("after clear = %+v, %v", resp, err)
	}
}

func TestDaemonWatch(t *testing.T) {
	sock, backend, w := startTestDaemon(t)

	if err := backend.Write(clip.TextSnapshot("hello")); err != nil {
		t.Fatal(err)
	}
	w.CheckOnce()

	wc, err := ipc.Dial(sock)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()
	if err := wc.WriteMsg(&message.Message{Type: message.TypeWatch}); err != nil {
		t.Fatal(err)
	}

	// A new watcher first receives the latest history.
	wc.SetReadDeadline(2 * time.Second)
	msg, err := wc.ReadMsg()
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != message.TypeEvent || msg.Event.Type != hub.HistoryChanged || len(msg.Event.Entries) != 1 {
		t.Fatalf("event = %+v", msg.Event)
	}
	if msg.Event.Entries[0].Payload != "hello" {
		t.Fatalf("entries = %+v", msg.Event.Entries)
	}
}
