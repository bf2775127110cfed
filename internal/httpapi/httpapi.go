// Package httpapi exposes the session over a small local HTTP API so a web
// picker can render the history, trigger pastes and follow changes over a
// websocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/XianJunYe/clipboard-manager/internal/history"
	"github.com/XianJunYe/clipboard-manager/internal/hub"
	"github.com/XianJunYe/clipboard-manager/internal/paste"
	"github.com/XianJunYe/clipboard-manager/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Session is the part of the session the API drives.
type Session interface {
	Entries(n int) []history.Entry
	Status() session.Status
	RequestOpenPicker(ctx context.Context) []history.Entry
	RequestClose(ctx context.Context)
	RequestSelect(ctx context.Context, index int) (paste.Result, error)
	RequestPaste(ctx context.Context, id string) (paste.Result, error)
	RequestClearHistory() error
	RequestDeduplicate() (int, error)
	Hub() *hub.Hub
}

// Server serves the API.
type Server struct {
	s        Session
	upgrader websocket.Upgrader

	// listenHost is the host part of the serving address, accepted in Host
	// headers next to loopback names.
	listenHost string
}

// New returns a Server for s.
func New(s Session) *Server {
	return &Server{
		s: s,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     sameOrigin,
		},
	}
}

// Handler returns the API routes.
func (srv *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/entries", srv.handleEntries)
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("POST /api/open", srv.handleOpen)
	mux.HandleFunc("POST /api/close", srv.handleClose)
	mux.HandleFunc("POST /api/select/{index}", srv.handleSelect)
	mux.HandleFunc("POST /api/paste/{id}", srv.handlePaste)
	mux.HandleFunc("POST /api/clear", srv.handleClear)
	mux.HandleFunc("POST /api/dedup", srv.handleDedup)
	mux.HandleFunc("GET /ws", srv.handleWebSocket)
	return srv.rejectForeign(mux)
}

// Serve runs the API on ln until ctx is done.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	if host, _, err := net.SplitHostPort(ln.Addr().String()); err == nil {
		srv.listenHost = host
	}
	hs := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	})
	defer stop()

	slog.Info("http api listening", "addr", ln.Addr())
	if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (srv *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	n := 0
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
		n = v
	}
	writeJSON(w, http.StatusOK, srv.s.Entries(n))
}

func (srv *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, srv.s.Status())
}

func (srv *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, srv.s.RequestOpenPicker(r.Context()))
}

func (srv *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	srv.s.RequestClose(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}
	res, err := srv.s.RequestSelect(r.Context(), index)
	writePasteResult(w, res, err)
}

func (srv *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	res, err := srv.s.RequestPaste(r.Context(), r.PathValue("id"))
	writePasteResult(w, res, err)
}

func (srv *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	if err := srv.s.RequestClearHistory(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleDedup(w http.ResponseWriter, _ *http.Request) {
	n, err := srv.s.RequestDeduplicate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// handleWebSocket streams hub events to the client until it disconnects.
func (srv *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sub := hub.NewChan("ws:"+uuid.NewString(), 64)
	h := srv.s.Hub()
	h.Register(sub)
	defer h.Unregister(sub)

	// The read side only handles control frames and notices disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case ev := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				slog.Debug("websocket write failed", "err", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writePasteResult(w http.ResponseWriter, res paste.Result, err error) {
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	body := struct {
		paste.Result
		Error string `json:"error,omitempty"`
	}{res, res.ErrorText()}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("http response write failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sameOrigin accepts requests without an Origin header (CLI tools) and
// browser requests from the API's own host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// localHost reports whether the Host header names this machine: a loopback
// address, localhost, or the concrete address the server listens on.
func (srv *Server) localHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	listen := net.ParseIP(srv.listenHost)
	return listen != nil && !listen.IsUnspecified() && listen.Equal(ip)
}

// rejectForeign stops pages on other origins, and pages reaching the API
// through a rebound DNS name, from driving the API.
func (srv *Server) rejectForeign(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !srv.localHost(r.Host) {
			writeError(w, http.StatusForbidden, "unexpected host")
			return
		}
		if !sameOrigin(r) {
			writeError(w, http.StatusForbidden, "cross-origin request rejected")
			return
		}
		next.ServeHTTP(w, r)
	})
}
