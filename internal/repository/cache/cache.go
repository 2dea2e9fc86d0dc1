package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/db"
	"github.com/kailas-cloud/xsearch/internal/domain/search/key"
)

// Default TTLs per namespace.
const (
	DefaultSearchTTL  = time.Hour
	DefaultSuggestTTL = 2 * time.Hour
	DefaultStatsTTL   = 30 * time.Minute
)

// globEscaper quotes SCAN glob metacharacters so a prefix matches literally.
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) (int, error)
}

// Config controls the cache.
type Config struct {
	Enabled bool
	TTLs    map[key.Namespace]time.Duration
}

// Cache stores JSON-encoded values with a per-namespace TTL.
// Backend failures are logged and behave as a miss or a no-op.
type Cache struct {
	store    store
	enabled  bool
	ttls     map[key.Namespace]time.Duration
	outcomes *prometheus.CounterVec
	logger   *zap.Logger
}

// New creates a cache. outcomes is a counter vec with labels
// "namespace" and "result" ("hit"/"miss"/"error"); it may be nil.
func New(s store, cfg Config, outcomes *prometheus.CounterVec, logger *zap.Logger) *Cache {
	ttls := map[key.Namespace]time.Duration{
		key.Search:  DefaultSearchTTL,
		key.Suggest: DefaultSuggestTTL,
		key.Stats:   DefaultStatsTTL,
	}
	for ns, ttl := range cfg.TTLs {
		if ttl > 0 {
			ttls[ns] = ttl
		}
	}
	return &Cache{
		store:    s,
		enabled:  cfg.Enabled,
		ttls:     ttls,
		outcomes: outcomes,
		logger:   logger,
	}
}

// Enabled reports whether the cache is active.
func (c *Cache) Enabled() bool { return c.enabled }

// TTL returns the expiry applied to a namespace.
func (c *Cache) TTL(ns key.Namespace) time.Duration { return c.ttls[ns] }

// Get decodes the cached value of k into dst and reports whether it was found.
func (c *Cache) Get(ctx context.Context, ns key.Namespace, k string, dst any) bool {
	if !c.enabled {
		return false
	}

	data, err := c.store.Get(ctx, k)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			c.inc(ns, "miss")
		} else {
			c.inc(ns, "error")
			c.logger.Warn("Failed to read cache entry", zap.String("key", k), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.inc(ns, "error")
		c.logger.Warn("Failed to decode cache entry", zap.String("key", k), zap.Error(err))
		return false
	}

	c.inc(ns, "hit")
	return true
}

// Put stores value under k with the namespace TTL.
func (c *Cache) Put(ctx context.Context, ns key.Namespace, k string, value any) {
	if !c.enabled {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.String("key", k), zap.Error(err))
		return
	}

	if err := c.store.SetWithTTL(ctx, k, data, c.ttls[ns]); err != nil {
		c.inc(ns, "error")
		c.logger.Warn("Failed to write cache entry", zap.String("key", k), zap.Error(err))
	}
}

// Flush deletes cache entries whose key starts with the cache prefix plus prefix
// and returns how many were removed. An empty prefix clears every namespace.
// The store is shared with records and counters, so a failed scan deletes nothing.
func (c *Cache) Flush(ctx context.Context, prefix string) (int, error) {
	keys, err := c.store.Scan(ctx, key.CachePrefix+globEscaper.Replace(prefix)+"*")
	if err != nil {
		return 0, fmt.Errorf("scan cache keys: %w", err)
	}

	deleted := 0
	for start := 0; start < len(keys); start += delBatch {
		end := min(start+delBatch, len(keys))
		n, err := c.store.Del(ctx, keys[start:end]...)
		if err != nil {
			return deleted, fmt.Errorf("delete cache keys: %w", err)
		}
		deleted += n
	}
	return deleted, nil
}

const delBatch = 500

func (c *Cache) inc(ns key.Namespace, result string) {
	if c.outcomes != nil {
		c.outcomes.WithLabelValues(string(ns), result).Inc()
	}
}
