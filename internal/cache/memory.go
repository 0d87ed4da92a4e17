package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

func init() {
	Register("memory", newMemoryCache)
}

// memoryCache keeps entries in an expirable LRU private to this process
type memoryCache struct {
	entries *lru.LRU[string, []byte]
}

func newMemoryCache(cfg ProviderConfig) (Cache, error) {
	var onEvict lru.EvictCallback[string, []byte]
	if cfg.OnEvict != nil {
		notify := cfg.OnEvict
		onEvict = func(key string, _ []byte) { notify(key) }
	}
	return &memoryCache{entries: lru.NewLRU(cfg.Size, onEvict, cfg.TTL)}, nil
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return m.entries.Get(key)
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte) {
	m.entries.Add(key, value)
}

func (m *memoryCache) Delete(_ context.Context, key string) {
	m.entries.Remove(key)
}

func (m *memoryCache) Purge(_ context.Context) (int, error) {
	n := m.entries.Len()
	m.entries.Purge()
	return n, nil
}

func (m *memoryCache) Len(_ context.Context) int {
	return m.entries.Len()
}

func (m *memoryCache) Close() error {
	return nil
}
