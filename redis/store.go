// Package redis provides a cache.Store backed by Redis, so several processes
// can share the same snapshots.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asaidimu/go-ninja/core/cache"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "ninja:"

// Options configures Dial.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every cache key. Empty selects DefaultPrefix.
	Prefix string
	// Expiry bounds how long Redis keeps an envelope. Zero keeps it forever.
	Expiry time.Duration
}

// Store keeps snapshot envelopes as plain Redis strings.
type Store struct {
	rdb    *goredis.Client
	prefix string
	expiry time.Duration
	logger *zap.Logger
}

// Ensure Store implements the cache.Store interface.
var _ cache.Store = (*Store)(nil)

// Dial connects to Redis and pings it.
func Dial(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return NewStore(rdb, opts.Prefix, opts.Expiry, logger), nil
}

// NewStore wraps an existing client.
func NewStore(rdb *goredis.Client, prefix string, expiry time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		rdb:    rdb,
		prefix: prefix,
		expiry: expiry,
		logger: logger.With(zap.String("component", "redis_store")),
	}
}

func (s *Store) key(key string) string { return s.prefix + key }

// Load returns the envelope stored under key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		s.logger.Error("Failed to load snapshot", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("redis get %s: %w", s.key(key), err)
	}
	return data, true, nil
}

// Save replaces the envelope stored under key.
func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	if err := s.rdb.Set(ctx, s.key(key), data, s.expiry).Err(); err != nil {
		s.logger.Error("Failed to save snapshot", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set %s: %w", s.key(key), err)
	}
	s.logger.Debug("Saved snapshot", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
