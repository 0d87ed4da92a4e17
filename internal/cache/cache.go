// Package cache memoizes fetcher metadata queries (raw JSON keyed by URL) so
// repeated downloads of the same video or playlist skip the extra process run.
package cache

import "context"

// EvictCallback is called with the key of every entry dropped for capacity,
// expiry or deletion.
type EvictCallback func(key string)

// Logger receives errors from providers that cannot return them.
type Logger interface {
	Error(msg string, err error)
}

// Cache is a bounded, expiring key-value store. Lookups never fail: backend
// errors are logged and reported as a miss so metadata falls back to the fetcher.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Delete(ctx context.Context, key string)

	// Purge drops every entry and returns how many were removed.
	Purge(ctx context.Context) (int, error)

	// Len returns the number of live entries.
	Len(ctx context.Context) int

	Close() error
}
