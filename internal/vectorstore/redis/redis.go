// Package redis keeps index snapshots as JSON values in Redis, one key per
// sanitized user id. Entries expire after the configured TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"briefing/internal/domain"
	"briefing/internal/vectorstore"
)

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

type Storage struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewClient opens a client for cfg. The connection is established lazily.
func NewClient(cfg Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

// NewStorage keeps snapshots under cfg.KeyPrefix with cfg.TTL; a zero TTL
// never expires.
func NewStorage(client *goredis.Client, cfg Config) *Storage {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "briefing:index"
	}
	return &Storage{client: client, prefix: prefix, ttl: cfg.TTL}
}

// Key returns the Redis key holding the snapshot for userID.
func (s *Storage) Key(userID string) string {
	return s.prefix + ":" + vectorstore.SanitizeUserID(userID)
}

func (s *Storage) Save(ctx context.Context, key string, snap vectorstore.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return s.client.Set(ctx, s.Key(key), data, s.ttl).Err()
}

func (s *Storage) Load(ctx context.Context, key string) (*vectorstore.Snapshot, error) {
	data, err := s.client.Get(ctx, s.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, s.Key(key))
		}
		return nil, err
	}
	var snap vectorstore.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Close releases the underlying client.
func (s *Storage) Close() error { return s.client.Close() }
