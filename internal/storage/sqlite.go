package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"pantry/internal/category"
	"pantry/internal/inventory"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const DefaultSQLitePath = "data/pantry.db"

// SQLite keeps one row per item. Save rewrites the whole table in a single
// transaction.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = DefaultSQLitePath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	if err := runMigrations(path); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &SQLite{db: db}, nil
}

func runMigrations(path string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	log.Debug("Database migrations applied", "path", path)
	return nil
}

func (s *SQLite) Load(ctx context.Context) (*inventory.Inventory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, quantity, category, added_date, expiry_date FROM items ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	inv := inventory.New()
	for rows.Next() {
		var (
			name, cat, added string
			expiry           sql.NullString
			it               inventory.Item
		)
		if err := rows.Scan(&name, &it.Quantity, &cat, &added, &expiry); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}

		it.Category = category.Parse(cat)
		if it.AddedDate, err = time.Parse(time.RFC3339Nano, added); err != nil {
			return nil, fmt.Errorf("item %q: added_date: %w", name, err)
		}
		if expiry.Valid {
			d, err := inventory.ParseDate(expiry.String)
			if err != nil {
				return nil, fmt.Errorf("item %q: %w", name, err)
			}
			it.ExpiryDate = &d
		}
		inv.Put(name, it)
	}
	return inv, rows.Err()
}

func (s *SQLite) Save(ctx context.Context, inv *inventory.Inventory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (name, position, quantity, category, added_date, expiry_date) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	pos := 0
	for name, it := range inv.All() {
		var expiry sql.NullString
		if it.ExpiryDate != nil {
			expiry = sql.NullString{String: it.ExpiryDate.String(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, name, pos, it.Quantity, string(it.Category),
			it.AddedDate.Format(time.RFC3339Nano), expiry); err != nil {
			return fmt.Errorf("insert %q: %w", name, err)
		}
		pos++
	}

	return tx.Commit()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
