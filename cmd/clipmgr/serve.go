package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/XianJunYe/clipboard-manager/internal/history"
	"github.com/XianJunYe/clipboard-manager/internal/hub"
	"github.com/XianJunYe/clipboard-manager/internal/message"
	"github.com/XianJunYe/clipboard-manager/internal/session"
	"github.com/XianJunYe/clipboard-manager/internal/wire"
)

const (
	// automationTimeout bounds one paste strategy.
	automationTimeout = 3 * time.Second

	requestTimeout = 10 * time.Second
)

// handleIPCConn answers one CLI request.
func handleIPCConn(ctx context.Context, wc *wire.Conn, sess *session.Session) {
	wc.SetReadDeadline(requestTimeout)
	msg, err := wc.ReadMsg()
	if err != nil {
		slog.Debug("ipc: bad request", "err", err)
		return
	}
	wc.SetReadDeadline(0)
	slog.Debug("ipc: request", "type", msg.Type)

	if msg.Type == message.TypeWatch {
		streamEvents(ctx, wc, sess.Hub())
		return
	}

	resp := dispatch(ctx, msg, sess)
	if err := wc.WriteMsg(resp); err != nil {
		slog.Debug("ipc: write response failed", "type", msg.Type, "err", err)
	}
}

func dispatch(ctx context.Context, msg *message.Message, sess *session.Session) *message.Message {
	entries := func(e []history.Entry) *message.Message {
		return &message.Message{Type: message.TypeEntries, Entries: e}
	}

	switch msg.Type {
	case message.TypePing:
		return &message.Message{Type: message.TypePong}

	case message.TypeList:
		return entries(sess.Entries(msg.Limit))

	case message.TypeOpen:
		return entries(sess.RequestOpenPicker(ctx))

	case message.TypeClose:
		sess.RequestClose(ctx)
		return &message.Message{Type: message.TypeOK}

	case message.TypeToggle:
		visible, e := sess.RequestToggle(ctx)
		resp := entries(e)
		resp.Visible = visible
		return resp

	case message.TypeDetail:
		return entries(sess.RequestShowDetail())

	case message.TypeBack:
		return entries(sess.RequestBackToPicker(ctx))

	case message.TypeSelect:
		res, err := sess.RequestSelect(ctx, msg.Index)
		if err != nil {
			return message.Errorf("%v", err)
		}
		return &message.Message{Type: message.TypeResult, Paste: &res, Error: res.ErrorText()}

	case message.TypePaste:
		res, err := sess.RequestPaste(ctx, msg.ID)
		if err != nil {
			return message.Errorf("%v", err)
		}
		return &message.Message{Type: message.TypeResult, Paste: &res, Error: res.ErrorText()}

	case message.TypeClear:
		if err := sess.RequestClearHistory(); err != nil {
			return message.Errorf("%v", err)
		}
		return &message.Message{Type: message.TypeOK}

	case message.TypeDedup:
		n, err := sess.RequestDeduplicate()
		if err != nil {
			return message.Errorf("%v", err)
		}
		return &message.Message{Type: message.TypeOK, Removed: n}

	case message.TypeCurrent:
		snap, ok, err := sess.CurrentContent()
		if err != nil {
			return message.Errorf("read clipboard: %v", err)
		}
		resp := &message.Message{Type: message.TypeContent}
		if ok {
			resp.Content = &snap
		}
		return resp

	case message.TypeStatus:
		st := sess.Status()
		return &message.Message{Type: message.TypeState, Status: &st}

	default:
		return message.Errorf("unknown request %q", msg.Type)
	}
}

// streamEvents forwards hub events to a WATCH client until it hangs up or the
// daemon stops.
func streamEvents(ctx context.Context, wc *wire.Conn, h *hub.Hub) {
	sub := hub.NewChan("ipc:"+uuid.NewString(), 64)
	h.Register(sub)
	defer h.Unregister(sub)

	// Clients send nothing after WATCH; a read returning means they left.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, err := wc.ReadMsg(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = wc.Close()
			return
		case <-gone:
			return
		case ev := <-sub.C:
			if err := wc.WriteMsg(&message.Message{Type: message.TypeEvent, Event: &ev}); err != nil {
				slog.Debug("ipc: watch client write failed", "err", err)
				return
			}
		}
	}
}
