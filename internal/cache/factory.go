package cache

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// defaultKeyPrefix namespaces keys when a Redis database is shared
const defaultKeyPrefix = "tubemp3:"

// ProviderConfig configures a cache instance
type ProviderConfig struct {
	Size int
	TTL  time.Duration

	OnEvict EvictCallback
	Logger  Logger

	// KeyPrefix namespaces keys in shared backends
	KeyPrefix string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// Group names the cache in the metadata_cache_* metrics. Empty disables instrumentation.
	Group string
}

// Provider builds a Cache from config
type Provider func(cfg ProviderConfig) (Cache, error)

var (
	providersMu sync.RWMutex
	providers   = map[string]Provider{}
)

// Register makes a provider available under name. Registering twice panics.
func Register(name string, p Provider) {
	providersMu.Lock()
	defer providersMu.Unlock()

	if p == nil {
		panic("cache: nil provider " + name)
	}
	if _, dup := providers[name]; dup {
		panic(fmt.Sprintf("cache: provider %q registered twice", name))
	}
	providers[name] = p
}

// RegisteredProviders returns the provider names, sorted
func RegisteredProviders() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New builds the named provider and wraps it with metrics when cfg.Group is set
func New(name string, cfg ProviderConfig) (Cache, error) {
	providersMu.RLock()
	build, ok := providers[name]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("cache: unknown provider %q (available: %v)", name, RegisteredProviders())
	}

	if cfg.Size <= 0 {
		return nil, errors.New("cache: size must be positive")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("cache: ttl must be positive")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.Group == "" {
		return build(cfg)
	}

	group := cfg.Group
	next := cfg.OnEvict
	cfg.OnEvict = func(key string) {
		EvictionsTotal.WithLabelValues(group).Inc()
		if next != nil {
			next(key)
		}
	}
	inner, err := build(cfg)
	if err != nil {
		return nil, err
	}
	return observe(inner, group), nil
}
