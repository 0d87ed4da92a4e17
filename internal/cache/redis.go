package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func init() {
	Register("redis", newRedisCache)
}

const (
	redisDialTimeout = 5 * time.Second
	redisOpTimeout   = 2 * time.Second
)

// redisCache lets several engine instances share fetcher metadata.
//
// Each entry is a plain string key {prefix}entry:{url} expiring through PX, so
// any Redis 2.6+ server works. {prefix}recent is a sorted set of urls scored by
// last access; it drives LRU eviction and is pruned of members whose entry has
// already expired.
type redisCache struct {
	client      *redis.Client
	ttl         time.Duration
	maxSize     int
	onEvict     EvictCallback
	logger      Logger
	entryPrefix string
	recentKey   string
}

// readEntry returns the entry and refreshes its recency, or drops the stale
// recency member when the entry expired.
//
// KEYS[1] entry, KEYS[2] recent; ARGV[1] url, ARGV[2] now (µs)
var readEntry = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v then
  redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
else
  redis.call('ZREM', KEYS[2], ARGV[1])
end
return v
`)

// writeEntry stores the entry and evicts least recently used urls beyond the
// capacity. Returns the evicted urls.
//
// KEYS[1] entry, KEYS[2] recent; ARGV[1] url, ARGV[2] value, ARGV[3] now (µs),
// ARGV[4] ttl (ms), ARGV[5] capacity, ARGV[6] entry key prefix
var writeEntry = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[4])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
local evicted = {}
local over = redis.call('ZCARD', KEYS[2]) - tonumber(ARGV[5])
if over > 0 then
  local oldest = redis.call('ZRANGE', KEYS[2], 0, over - 1)
  for _, url in ipairs(oldest) do
    redis.call('DEL', ARGV[6] .. url)
    redis.call('ZREM', KEYS[2], url)
    table.insert(evicted, url)
  end
end
return evicted
`)

// liveEntries prunes recency members whose entry expired and returns the count left.
//
// KEYS[1] recent; ARGV[1] entry key prefix
var liveEntries = redis.NewScript(`
local live = 0
for _, url in ipairs(redis.call('ZRANGE', KEYS[1], 0, -1)) do
  if redis.call('EXISTS', ARGV[1] .. url) == 1 then
    live = live + 1
  else
    redis.call('ZREM', KEYS[1], url)
  end
end
return live
`)

// purgeEntries deletes every entry and the recency set. Returns the urls removed.
//
// KEYS[1] recent; ARGV[1] entry key prefix
var purgeEntries = redis.NewScript(`
local urls = redis.call('ZRANGE', KEYS[1], 0, -1)
for _, url in ipairs(urls) do
  redis.call('DEL', ARGV[1] .. url)
end
redis.call('DEL', KEYS[1])
return urls
`)

func newRedisCache(cfg ProviderConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddress, err)
	}

	return &redisCache{
		client:      client,
		ttl:         cfg.TTL,
		maxSize:     cfg.Size,
		onEvict:     cfg.OnEvict,
		logger:      cfg.Logger,
		entryPrefix: cfg.KeyPrefix + "entry:",
		recentKey:   cfg.KeyPrefix + "recent",
	}, nil
}

func (r *redisCache) warn(op string, err error) {
	if r.logger != nil {
		r.logger.Error("redis metadata cache "+op+" failed", err)
	}
}

func (r *redisCache) evicted(urls []string) {
	if r.onEvict == nil {
		return
	}
	for _, url := range urls {
		r.onEvict(url)
	}
}

func micros() string {
	return strconv.FormatInt(time.Now().UnixMicro(), 10)
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	value, err := readEntry.Run(ctx, r.client, []string{r.entryPrefix + key, r.recentKey}, key, micros()).Text()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.warn("get", err)
		return nil, false
	}
	return []byte(value), true
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	urls, err := writeEntry.Run(ctx, r.client, []string{r.entryPrefix + key, r.recentKey},
		key, value, micros(), r.ttl.Milliseconds(), r.maxSize, r.entryPrefix).StringSlice()
	if err != nil {
		r.warn("set", err)
		return
	}
	r.evicted(urls)
}

func (r *redisCache) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	deleted := pipe.Del(ctx, r.entryPrefix+key)
	pipe.ZRem(ctx, r.recentKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		r.warn("delete", err)
		return
	}
	if deleted.Val() > 0 {
		r.evicted([]string{key})
	}
}

func (r *redisCache) Purge(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	urls, err := purgeEntries.Run(ctx, r.client, []string{r.recentKey}, r.entryPrefix).StringSlice()
	if err != nil {
		return 0, fmt.Errorf("redis purge: %w", err)
	}
	r.evicted(urls)
	return len(urls), nil
}

func (r *redisCache) Len(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	n, err := liveEntries.Run(ctx, r.client, []string{r.recentKey}, r.entryPrefix).Int()
	if err != nil {
		r.warn("len", err)
		return 0
	}
	return n
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
