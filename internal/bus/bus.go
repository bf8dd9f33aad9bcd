// Package bus connects to the websocket message bus shared by the household
// shards. Every frame is one JSON Message.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	KindCommand = "command"
	KindReply   = "reply"
	KindError   = "error"

	// Broadcast addresses every shard.
	Broadcast = "*"
)

type Message struct {
	ID      string `json:"id"`
	ReplyTo string `json:"reply_to,omitempty"`
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	// Audio is an encoded recording (wav, mp3, ogg) to transcribe instead of
	// Content.
	Audio []byte `json:"audio,omitempty"`
}

func NewMessage(from, to, kind, content string) *Message {
	return &Message{
		ID:      uuid.NewString(),
		From:    from,
		To:      to,
		Kind:    kind,
		Content: content,
	}
}

// DecodeError is a frame that arrived intact but is not a Message. The
// connection stays usable.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode message: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

type Bus struct {
	conn *websocket.Conn
}

// Dial connects to url. A nil dialer means websocket.DefaultDialer.
func Dial(ctx context.Context, url string, dialer *websocket.Dialer) (*Bus, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus %s: %w", url, err)
	}
	log.Info("Connected to bus", "url", url)
	return &Bus{conn: conn}, nil
}

func (b *Bus) Read() (*Message, error) {
	_, data, err := b.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &m, nil
}

func (b *Bus) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame before dropping the connection. Safe to call
// while another goroutine is reading or writing.
func (b *Bus) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = b.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return b.conn.Close()
}
