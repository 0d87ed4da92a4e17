package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis tests need a server: set REDIS_ADDRESS (e.g. localhost:6379).
// They use database 15 and flush it first.

func newRedisTestCache(t *testing.T, size int, ttl time.Duration, onEvict EvictCallback) Cache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("Skipping Redis tests: set REDIS_ADDRESS to enable")
	}

	admin := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer admin.Close()
	if err := admin.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("FlushDB: %v", err)
	}

	c, err := New("redis", ProviderConfig{
		Size:         size,
		TTL:          ttl,
		RedisAddress: addr,
		RedisDB:      15,
		KeyPrefix:    "tubemp3-test:",
		OnEvict:      onEvict,
	})
	if err != nil {
		t.Fatalf("New redis cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := newRedisTestCache(t, 10, time.Minute, nil)

	if _, ok := c.Get(ctx, "https://youtu.be/abc123"); ok {
		t.Fatal("Expected a miss on an empty cache")
	}
	c.Set(ctx, "https://youtu.be/abc123", []byte(`{"id":"abc123"}`))

	got, ok := c.Get(ctx, "https://youtu.be/abc123")
	if !ok || string(got) != `{"id":"abc123"}` {
		t.Errorf("Get = %q, %v", got, ok)
	}
	if n := c.Len(ctx); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestRedisCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	var evicted []string
	c := newRedisTestCache(t, 2, time.Minute, func(key string) { evicted = append(evicted, key) })

	c.Set(ctx, "a", []byte("1"))
	time.Sleep(time.Millisecond)
	c.Set(ctx, "b", []byte("2"))
	time.Sleep(time.Millisecond)
	c.Get(ctx, "a")
	time.Sleep(time.Millisecond)
	c.Set(ctx, "c", []byte("3"))

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("Expected b to be evicted")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("Expected a to survive after being read")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evicted)
	}
}

func TestRedisCache_ExpiredEntriesAreNotCounted(t *testing.T) {
	ctx := context.Background()
	c := newRedisTestCache(t, 10, 100*time.Millisecond, nil)

	c.Set(ctx, "short", []byte("lived"))
	time.Sleep(300 * time.Millisecond)

	if n := c.Len(ctx); n != 0 {
		t.Errorf("Len = %d after expiry, want 0", n)
	}
	if _, ok := c.Get(ctx, "short"); ok {
		t.Error("Expected a miss after expiry")
	}
}

func TestRedisCache_DeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	var evicted []string
	c := newRedisTestCache(t, 10, time.Minute, func(key string) { evicted = append(evicted, key) })

	for _, k := range []string{"a", "b", "c"} {
		c.Set(ctx, k, []byte(k))
	}
	c.Delete(ctx, "a")
	c.Delete(ctx, "absent")
	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("Expected a to be deleted")
	}

	n, err := c.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 2 {
		t.Errorf("Purge removed %d, want 2", n)
	}
	if c.Len(ctx) != 0 {
		t.Errorf("Len after Purge = %d", c.Len(ctx))
	}
	if len(evicted) != 3 {
		t.Errorf("evicted = %v, want three callbacks", evicted)
	}
}

func TestRedisCache_CancelledContextIsAMiss(t *testing.T) {
	c := newRedisTestCache(t, 10, time.Minute, nil)
	c.Set(context.Background(), "k", []byte("v"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Expected a cancelled lookup to report a miss")
	}
}
