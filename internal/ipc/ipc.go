// Package ipc is the local control socket: one JSON request and one JSON
// reply per connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const DefaultSocketPath = "/tmp/pantry.sock"

type Request struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Reply struct {
	ID    string `json:"id"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// HandlerFunc runs one command and returns the text to send back.
type HandlerFunc func(ctx context.Context, text string) (string, error)

// Serve listens on path until ctx is done. A stale socket file from an
// earlier run is removed first.
func Serve(ctx context.Context, path string, handler HandlerFunc) error {
	if path == "" {
		path = DefaultSocketPath
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("socket dir: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("Control socket listening", "path", path)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer os.Remove(path)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn("Accept failed", "err", err)
			continue
		}
		go handleConn(ctx, conn, handler)
	}
}

func handleConn(ctx context.Context, conn net.Conn, handler HandlerFunc) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(time.Minute))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Debug("Bad control request", "err", err)
		json.NewEncoder(conn).Encode(Reply{Error: "malformed request"})
		return
	}

	log.Debug("Control request", "id", req.ID, "text", req.Text)
	rep := Reply{ID: req.ID}
	text, err := handler(ctx, req.Text)
	if err != nil {
		rep.Error = err.Error()
	} else {
		rep.Text = text
	}

	if err := json.NewEncoder(conn).Encode(rep); err != nil {
		log.Debug("Write control reply", "id", req.ID, "err", err)
	}
}

// Send delivers one command to a running daemon and waits for its reply. A
// reply carrying an error is returned as an error.
func Send(ctx context.Context, path, text string) (string, error) {
	if path == "" {
		path = DefaultSocketPath
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}

	req := Request{ID: uuid.NewString(), Text: text}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}

	var rep Reply
	if err := json.NewDecoder(conn).Decode(&rep); err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	if rep.ID != req.ID {
		return "", fmt.Errorf("reply id %q does not match request %q", rep.ID, req.ID)
	}
	if rep.Error != "" {
		return "", errors.New(rep.Error)
	}
	return rep.Text, nil
}
