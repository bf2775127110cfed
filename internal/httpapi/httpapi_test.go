package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/XianJunYe/clipboard-manager/internal/clip"
	"github.com/XianJunYe/clipboard-manager/internal/history"
	"github.com/XianJunYe/clipboard-manager/internal/hub"
	"github.com/XianJunYe/clipboard-manager/internal/paste"
	"github.com/XianJunYe/clipboard-manager/internal/session"
)

type fakeSession struct {
	entries []history.Entry
	hub     *hub.Hub
	closed  int
	cleared int
	pasted  []string
}

func (f *fakeSession) Entries(n int) []history.Entry {
	if n <= 0 || n > len(f.entries) {
		return f.entries
	}
	return f.entries[:n]
}
func (f *fakeSession) Status() session.Status { return session.Status{Entries: len(f.entries)} }
func (f *fakeSession) RequestOpenPicker(context.Context) []history.Entry {
	return f.entries
}
func (f *fakeSession) RequestClose(context.Context) { f.closed++ }
func (f *fakeSession) RequestSelect(ctx context.Context, i int) (paste.Result, error) {
	if i >= len(f.entries) {
		return paste.Result{}, fmt.Errorf("%w: index %d", history.ErrNotFound, i)
	}
	return f.RequestPaste(ctx, f.entries[i].ID)
}
func (f *fakeSession) RequestPaste(_ context.Context, id string) (paste.Result, error) {
	for _, e := range f.entries {
		if e.ID == id {
			f.pasted = append(f.pasted, id)
			return paste.Result{State: paste.StateExhausted, Attempts: []string{"a", "b", "c"}, Err: paste.ErrExhausted}, nil
		}
	}
	return paste.Result{}, fmt.Errorf("%w: %s", history.ErrNotFound, id)
}
func (f *fakeSession) RequestClearHistory() error       { f.cleared++; return nil }
func (f *fakeSession) RequestDeduplicate() (int, error) { return 0, errors.New("disk full") }
func (f *fakeSession) Hub() *hub.Hub                    { return f.hub }

func newTestServer(t *testing.T) (*fakeSession, *httptest.Server) {
	t.Helper()
	fs := &fakeSession{
		hub: hub.New(),
		entries: []history.Entry{
			{ID: "a", Kind: clip.KindText, Payload: "one"},
			{ID: "b", Kind: clip.KindText, Payload: "two"},
		},
	}
	ts := httptest.NewServer(New(fs).Handler())
	t.Cleanup(ts.Close)
	return fs, ts
}

func TestEntries(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/entries?n=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got []history.Entry
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("got %+v", got)
	}

	bad, err := http.Get(ts.URL + "/api/entries?n=-3")
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", bad.StatusCode)
	}
}

func TestPasteRoutes(t *testing.T) {
	fs, ts := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/paste/b", http.StatusOK},
		{"/api/paste/missing", http.StatusNotFound},
		{"/api/select/0", http.StatusOK},
		{"/api/select/7", http.StatusNotFound},
		{"/api/select/x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := http.Post(ts.URL+tt.path, "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("POST %s = %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
	}
	if strings.Join(fs.pasted, ",") != "b,a" {
		t.Fatalf("pasted = %v", fs.pasted)
	}
}

func TestPasteResultBody(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/paste/a", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["state"] != string(paste.StateExhausted) || !strings.Contains(fmt.Sprint(body["error"]), "all strategies failed") {
		t.Fatalf("body = %v", body)
	}
}

func TestMutatingRoutes(t *testing.T) {
	fs, ts := newTestServer(t)

	for path, want := range map[string]int{
		"/api/close": http.StatusNoContent,
		"/api/clear": http.StatusNoContent,
		"/api/dedup": http.StatusInternalServerError,
		"/api/open":  http.StatusOK,
	} {
		resp, err := http.Post(ts.URL+path, "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("POST %s = %d, want %d", path, resp.StatusCode, want)
		}
	}
	if fs.closed != 1 || fs.cleared != 1 {
		t.Fatalf("closed=%d cleared=%d", fs.closed, fs.cleared)
	}

	resp, err := http.Get(ts.URL + "/api/clear")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /api/clear = %d", resp.StatusCode)
	}
}

func TestCrossOriginRejected(t *testing.T) {
	fs, ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/clear", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden || fs.cleared != 0 {
		t.Fatalf("status = %d cleared = %d", resp.StatusCode, fs.cleared)
	}
}

func TestForeignHostRejected(t *testing.T) {
	fs, ts := newTestServer(t)
	for _, host := range []string{"evil.example:8753", "evil.example", "192.0.2.7:8753"} {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/entries", nil)
		req.Host = host
		req.Header.Set("Origin", "http://"+host)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("host %s: status = %d, want 403", host, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/clear", nil)
	req.Host = "evil.example:8753"
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if fs.cleared != 0 {
		t.Fatal("clear ran for a foreign host")
	}
}

func TestLocalHostNames(t *testing.T) {
	srv := &Server{listenHost: "192.168.1.20"}
	tests := []struct {
		host string
		want bool
	}{
		{"127.0.0.1:8753", true},
		{"localhost:8753", true},
		{"LOCALHOST", true},
		{"[::1]:8753", true},
		{"192.168.1.20:8753", true},
		{"192.168.1.21:8753", false},
		{"evil.example:8753", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := srv.localHost(tt.host); got != tt.want {
			t.Errorf("localHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
	if (&Server{listenHost: "0.0.0.0"}).localHost("0.0.0.0:8753") {
		t.Error("unspecified listen address accepted as host")
	}
}

func TestWebSocketEvents(t *testing.T) {
	fs, ts := newTestServer(t)
	fs.hub.Publish(hub.Event{Type: hub.HistoryChanged, Entries: fs.entries})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev hub.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != hub.HistoryChanged || len(ev.Entries) != 2 {
		t.Fatalf("first event = %+v", ev)
	}

	// Registration happens before the replay above, so this is delivered.
	fs.hub.Publish(hub.Event{Type: hub.PickerOpened})
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != hub.PickerOpened {
		t.Fatalf("second event = %+v", ev)
	}
}
