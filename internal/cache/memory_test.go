package cache

import (
	"context"
	"testing"
	"time"
)

func newMemoryTestCache(t *testing.T, size int, ttl time.Duration, onEvict EvictCallback) Cache {
	t.Helper()
	c, err := New("memory", ProviderConfig{Size: size, TTL: ttl, OnEvict: onEvict})
	if err != nil {
		t.Fatalf("New memory cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := newMemoryTestCache(t, 10, time.Hour, nil)

	if _, ok := c.Get(ctx, "https://youtu.be/abc123"); ok {
		t.Fatal("Expected a miss on an empty cache")
	}

	c.Set(ctx, "https://youtu.be/abc123", []byte(`{"id":"abc123"}`))
	got, ok := c.Get(ctx, "https://youtu.be/abc123")
	if !ok {
		t.Fatal("Expected a hit after Set")
	}
	if string(got) != `{"id":"abc123"}` {
		t.Errorf("Get = %s", got)
	}

	c.Set(ctx, "https://youtu.be/abc123", []byte(`{"id":"abc123","title":"new"}`))
	got, _ = c.Get(ctx, "https://youtu.be/abc123")
	if string(got) != `{"id":"abc123","title":"new"}` {
		t.Errorf("Set did not overwrite, got %s", got)
	}
	if n := c.Len(ctx); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	var evicted []string
	c := newMemoryTestCache(t, 2, time.Hour, func(key string) { evicted = append(evicted, key) })

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	c.Get(ctx, "a")
	c.Set(ctx, "c", []byte("3"))

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("Expected b to be evicted as least recently used")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("Expected a to survive after being read")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evicted)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	var evicted []string
	c := newMemoryTestCache(t, 10, time.Hour, func(key string) { evicted = append(evicted, key) })

	c.Set(ctx, "playlist", []byte("{}"))
	c.Delete(ctx, "playlist")
	c.Delete(ctx, "absent")

	if _, ok := c.Get(ctx, "playlist"); ok {
		t.Error("Expected entry to be gone after Delete")
	}
	if len(evicted) != 1 {
		t.Errorf("evicted = %v, want one callback", evicted)
	}
}

func TestMemoryCache_Purge(t *testing.T) {
	ctx := context.Background()
	c := newMemoryTestCache(t, 10, time.Hour, nil)

	for _, k := range []string{"a", "b", "c"} {
		c.Set(ctx, k, []byte(k))
	}
	n, err := c.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 3 {
		t.Errorf("Purge removed %d, want 3", n)
	}
	if c.Len(ctx) != 0 {
		t.Errorf("Len after Purge = %d", c.Len(ctx))
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := newMemoryTestCache(t, 10, 50*time.Millisecond, nil)

	c.Set(ctx, "short", []byte("lived"))
	time.Sleep(150 * time.Millisecond)

	if _, ok := c.Get(ctx, "short"); ok {
		t.Error("Expected entry to expire")
	}
}
