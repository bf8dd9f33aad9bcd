package bus

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// HandlerFunc runs one command and returns the reply text.
type HandlerFunc func(ctx context.Context, text string) (string, error)

// AudioFunc turns an encoded recording into command text.
type AudioFunc func(ctx context.Context, audio []byte) (string, error)

type ShardConfig struct {
	Name   string
	URL    string
	Dialer *websocket.Dialer
	// Reconnect is the pause between dial attempts after the bus drops.
	Reconnect time.Duration
	// Audio may be nil, audio commands are then answered with an error.
	Audio AudioFunc
}

// Shard answers command messages addressed to its name, or broadcast, with a
// reply or error message back to the sender.
type Shard struct {
	cfg     ShardConfig
	handler HandlerFunc
}

func NewShard(cfg ShardConfig, handler HandlerFunc) *Shard {
	if cfg.Reconnect <= 0 {
		cfg.Reconnect = 3 * time.Second
	}
	return &Shard{cfg: cfg, handler: handler}
}

// Run keeps the shard connected until ctx is done.
func (s *Shard) Run(ctx context.Context) error {
	for {
		b, err := Dial(ctx, s.cfg.URL, s.cfg.Dialer)
		if err != nil {
			log.Warn("Bus unavailable", "err", err, "retry", s.cfg.Reconnect)
		} else {
			err = s.serve(ctx, b)
			switch {
			case ctx.Err() != nil:
			case isClosed(err):
				log.Info("Bus closed the connection", "err", err)
			default:
				log.Warn("Bus connection lost", "err", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.Reconnect):
		}
	}
}

func (s *Shard) serve(ctx context.Context, b *Bus) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			b.Close()
		case <-stop:
		}
	}()
	defer b.conn.Close()

	for {
		msg, err := b.Read()
		var bad *DecodeError
		if errors.As(err, &bad) {
			log.Debug("Dropping bad frame", "err", err)
			continue
		}
		if err != nil {
			return err
		}

		if reply := s.answer(ctx, msg); reply != nil {
			if err := b.Write(reply); err != nil {
				return err
			}
		}
	}
}

func (s *Shard) answer(ctx context.Context, msg *Message) *Message {
	if msg.Kind != KindCommand || (msg.To != s.cfg.Name && msg.To != Broadcast) {
		return nil
	}

	text := msg.Content
	if len(msg.Audio) > 0 {
		if s.cfg.Audio == nil {
			return s.reply(msg, KindError, "audio commands are not supported")
		}
		var err error
		if text, err = s.cfg.Audio(ctx, msg.Audio); err != nil {
			return s.reply(msg, KindError, err.Error())
		}
	}

	log.Info("Bus command", "from", msg.From, "id", msg.ID, "text", text)
	out, err := s.handler(ctx, text)
	if err != nil {
		return s.reply(msg, KindError, err.Error())
	}
	return s.reply(msg, KindReply, out)
}

func (s *Shard) reply(to *Message, kind, content string) *Message {
	m := NewMessage(s.cfg.Name, to.From, kind, content)
	m.ReplyTo = to.ID
	return m
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure)
}
