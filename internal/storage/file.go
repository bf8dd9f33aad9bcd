package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pantry/internal/inventory"
)

const DefaultPath = "groceries.json"

type codec struct {
	marshal   func(*inventory.Inventory) ([]byte, error)
	unmarshal func([]byte, *inventory.Inventory) error
}

var jsonCodec = codec{
	marshal: func(inv *inventory.Inventory) ([]byte, error) {
		return json.MarshalIndent(inv, "", "  ")
	},
	unmarshal: func(b []byte, inv *inventory.Inventory) error {
		return json.Unmarshal(b, inv)
	},
}

var yamlCodec = codec{
	marshal: func(inv *inventory.Inventory) ([]byte, error) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(inv); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	},
	unmarshal: func(b []byte, inv *inventory.Inventory) error {
		return yaml.Unmarshal(b, inv)
	},
}

// File stores the snapshot as a single JSON or YAML document, picked by the
// file extension.
type File struct {
	path  string
	codec codec
}

func NewFile(path string) (*File, error) {
	if path == "" {
		path = DefaultPath
	}

	c := jsonCodec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		c = yamlCodec
	case ".json", "":
	default:
		return nil, fmt.Errorf("unsupported snapshot extension %q (json, yaml)", filepath.Ext(path))
	}

	return &File{path: path, codec: c}, nil
}

func (f *File) Path() string { return f.path }

func (f *File) Load(context.Context) (*inventory.Inventory, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return inventory.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	inv := inventory.New()
	if len(bytes.TrimSpace(data)) == 0 {
		return inv, nil
	}
	if err := f.codec.unmarshal(data, inv); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return inv, nil
}

// Save writes to a temp file next to the target and renames it over, so a
// failed write never leaves a truncated snapshot behind.
func (f *File) Save(_ context.Context, inv *inventory.Inventory) error {
	data, err := f.codec.marshal(inv)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".pantry-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

func (f *File) Close() error { return nil }
