package storage

import (
	"context"
	"fmt"
	"io"
	log "log/slog"

	"pantry/internal/inventory"
)

type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

type Options struct {
	Backend Backend
	// Path is the snapshot file for the file backend and the database file
	// for sqlite.
	Path  string
	Redis RedisOptions
}

// Persister is an inventory.Persister that may hold a connection.
type Persister interface {
	inventory.Persister
	io.Closer
}

func Open(ctx context.Context, opt Options) (Persister, error) {
	log.Debug("Opening storage", "backend", opt.Backend, "path", opt.Path)

	switch opt.Backend {
	case BackendFile, "":
		return NewFile(opt.Path)
	case BackendSQLite:
		return NewSQLite(ctx, opt.Path)
	case BackendRedis:
		return NewRedis(ctx, opt.Redis)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opt.Backend)
	}
}

// Memory keeps the snapshot in process. Saves are deep copies so later
// mutations of the live inventory do not leak into it.
type Memory struct {
	snap    *inventory.Inventory
	saves   int
	SaveErr error
}

func NewMemory(initial *inventory.Inventory) *Memory {
	if initial == nil {
		initial = inventory.New()
	}
	return &Memory{snap: initial.Clone()}
}

func (m *Memory) Load(context.Context) (*inventory.Inventory, error) {
	return m.snap.Clone(), nil
}

func (m *Memory) Save(_ context.Context, inv *inventory.Inventory) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.snap = inv.Clone()
	m.saves++
	return nil
}

func (m *Memory) Saves() int { return m.saves }

func (m *Memory) Close() error { return nil }
