// Package cache keeps immutable remote objects (pinned signature images) in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yukikurage/deliverynote-api/internal/storage"
)

const keyPrefix = "object:"

// Store is the subset of the Redis client used by CachedFetcher.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// CachedFetcher serves fetches from Redis and falls back to the wrapped fetcher on a miss.
// Cache errors are logged and never fail the fetch.
type CachedFetcher struct {
	next  storage.Fetcher
	store Store
	ttl   time.Duration
	log   *slog.Logger
}

// NewCachedFetcher wraps next with a Redis read-through cache.
func NewCachedFetcher(next storage.Fetcher, store Store, ttl time.Duration, log *slog.Logger) *CachedFetcher {
	return &CachedFetcher{next: next, store: store, ttl: ttl, log: log}
}

func (f *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := Key(url)

	data, err := f.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		return data, nil
	case !errors.Is(err, redis.Nil):
		f.log.Warn("cache read failed", "key", key, "error", err)
	}

	data, err = f.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := f.store.Set(ctx, key, data, f.ttl).Err(); err != nil {
		f.log.Warn("cache write failed", "key", key, "error", err)
	}
	return data, nil
}

// Key derives the cache key for url.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(sum[:])
}
