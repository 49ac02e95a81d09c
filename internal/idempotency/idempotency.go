// Package idempotency records client-supplied keys so a retried write is
// applied at most once.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Store claims and releases keys
type Store interface {
	// MarkProcessed claims key for ttl. It returns false when the key was
	// already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets a key so a failed attempt can be retried
	Release(ctx context.Context, key string) error
}

const defaultPrefix = "visadesk:idempotency:"

// RedisStore shares keys across instances through Redis SETNX
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, opts *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, ""), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// CacheStore keeps keys in process memory. Keys do not survive a restart
// and are not shared between instances.
type CacheStore struct {
	cache *cache.Cache
}

// NewCacheStore creates an in-process store whose keys default to ttl
func NewCacheStore(ttl time.Duration) *CacheStore {
	return &CacheStore{cache: cache.New(ttl, 2*ttl)}
}

func (s *CacheStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	// Add fails when the key exists and has not expired
	if err := s.cache.Add(key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *CacheStore) Release(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*CacheStore)(nil)
)
