// Package message defines the clipmgr IPC protocol between the CLI and the
// daemon.
//
// All messages are newline-delimited JSON. Each request is answered by exactly
// one response, except WATCH which is answered by a stream of EVENT messages
// until either side closes the connection. Image payloads travel as PNG data
// URIs inside the entries.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/XianJunYe/clipboard-manager/internal/clip"
	"github.com/XianJunYe/clipboard-manager/internal/history"
	"github.com/XianJunYe/clipboard-manager/internal/hub"
	"github.com/XianJunYe/clipboard-manager/internal/paste"
	"github.com/XianJunYe/clipboard-manager/internal/session"
)

// Type identifies the kind of message.
type Type string

// Requests.
const (
	TypeList    Type = "LIST"
	TypeOpen    Type = "OPEN"
	TypeClose   Type = "CLOSE"
	TypeToggle  Type = "TOGGLE"
	TypeSelect  Type = "SELECT"
	TypePaste   Type = "PASTE"
	TypeDetail  Type = "DETAIL"
	TypeBack    Type = "BACK"
	TypeClear   Type = "CLEAR"
	TypeDedup   Type = "DEDUP"
	TypeCurrent Type = "CURRENT"
	TypeStatus  Type = "STATUS"
	TypeWatch   Type = "WATCH"
	TypePing    Type = "PING"
)

// Responses.
const (
	TypeOK      Type = "OK"
	TypeEntries Type = "ENTRIES"
	TypeResult  Type = "RESULT"
	TypeContent Type = "CONTENT"
	TypeState   Type = "STATE"
	TypeEvent   Type = "EVENT"
	TypePong    Type = "PONG"
	TypeError   Type = "ERROR"
)

// Message is the top-level wire envelope.
type Message struct {
	// Always present
	Type Type `json:"type"`

	// PASTE
	ID string `json:"id,omitempty"`
	// SELECT, 0-based picker position
	Index int `json:"index,omitempty"`
	// LIST, 0 = everything
	Limit int `json:"limit,omitempty"`

	// ENTRIES
	Entries []history.Entry `json:"entries,omitempty"`
	// TOGGLE response
	Visible bool `json:"visible,omitempty"`
	// DEDUP response
	Removed int `json:"removed,omitempty"`

	// RESULT
	Paste *paste.Result `json:"paste,omitempty"`
	// CONTENT
	Content *clip.Snapshot `json:"content,omitempty"`
	// STATE
	Status *session.Status `json:"status,omitempty"`
	// EVENT
	Event *hub.Event `json:"event,omitempty"`

	// ERROR, and RESULT when the paste did not complete
	Error string `json:"error,omitempty"`
}

// Errorf builds an ERROR response.
func Errorf(format string, args ...any) *Message {
	return &Message{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}

// Err returns the error carried by an ERROR message, or nil.
func (m *Message) Err() error {
	if m.Type != TypeError {
		return nil
	}
	return fmt.Errorf("daemon: %s", m.Error)
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	return &m, nil
}
