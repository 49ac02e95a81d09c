package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStoreClaimsOnce(t *testing.T) {
	ctx := context.Background()
	s := NewCacheStore(time.Minute)

	first, err := s.MarkProcessed(ctx, "reply:1:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.MarkProcessed(ctx, "reply:1:abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, s.Release(ctx, "reply:1:abc"))
	retry, err := s.MarkProcessed(ctx, "reply:1:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, retry)
}

func TestCacheStoreConcurrentClaims(t *testing.T) {
	s := NewCacheStore(time.Minute)
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.MarkProcessed(context.Background(), "k", time.Minute); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestCacheStoreExpiry(t *testing.T) {
	s := NewCacheStore(time.Minute)
	ok, _ := s.MarkProcessed(context.Background(), "short", 10*time.Millisecond)
	require.True(t, ok)
	time.Sleep(30 * time.Millisecond)
	ok, _ = s.MarkProcessed(context.Background(), "short", time.Minute)
	assert.True(t, ok)
}

func TestRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisStore(ctx, &redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	assert.Error(t, err)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	s := NewRedisStoreWithClient(client, "")
	assert.Equal(t, defaultPrefix, s.keyPrefix)
}
