package db

import (
	"context"
	"time"
)

// Store is the shared key-value backend for cache, metrics, popularity and throttling.
//
//nolint:interfacebloat // consumers depend on narrow sub-interfaces
type Store interface {
	Pinger
	KVStore
	HashStore
	KeyScanner
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// SearchStore is a backend that also hosts full-text indexes.
type SearchStore interface {
	Store
	IndexManager
	Searcher
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations with atomic counters.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) (int, error)
}

// HashStore provides hash field counters.
type HashStore interface {
	HIncrBy(ctx context.Context, key, field string, val int64) (int64, error)
	HIncrByFloat(ctx context.Context, key, field string, val float64) (float64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// KeyScanner enumerates keys by glob pattern.
type KeyScanner interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides full-text search over FT indexes.
type Searcher interface {
	SearchText(ctx context.Context, q *TextQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
