package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v7"

	"pantry/internal/inventory"
)

const DefaultRedisKey = "pantry:inventory"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Redis keeps the JSON snapshot under a single key, so a save is one SET.
type Redis struct {
	conn *redis.Client
	key  string
}

func NewRedis(ctx context.Context, opt RedisOptions) (*Redis, error) {
	if opt.Addr == "" {
		opt.Addr = "localhost:6379"
	}
	if opt.Key == "" {
		opt.Key = DefaultRedisKey
	}

	conn := redis.NewClient(&redis.Options{
		Addr:     opt.Addr,
		Password: opt.Password,
		DB:       opt.DB,
	})

	if _, err := conn.WithContext(ctx).Ping().Result(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", opt.Addr, err)
	}

	return &Redis{conn: conn, key: opt.Key}, nil
}

func (r *Redis) Load(ctx context.Context) (*inventory.Inventory, error) {
	raw, err := r.conn.WithContext(ctx).Get(r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return inventory.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.key, err)
	}

	inv := inventory.New()
	if err := json.Unmarshal(raw, inv); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.key, err)
	}
	return inv, nil
}

func (r *Redis) Save(ctx context.Context, inv *inventory.Inventory) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.conn.WithContext(ctx).Set(r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.conn.Close()
}
