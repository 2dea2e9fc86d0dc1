package searchmetrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/xsearch/internal/domain/search/query"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
)

// DefaultRetention is how long metric buckets live.
const DefaultRetention = 30 * 24 * time.Hour

// store is the consumer interface for metric buckets (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	HIncrBy(ctx context.Context, key, field string, val int64) (int64, error)
	HIncrByFloat(ctx context.Context, key, field string, val float64) (float64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) (int, error)
}

// topQueries reads today's popular queries.
type topQueries interface {
	Top(ctx context.Context, limit int) ([]result.Popular, error)
}

// Collector writes and reads day/hour bucketed counters and running averages.
type Collector struct {
	store     store
	popular   topQueries
	retention time.Duration
	now       func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New creates a collector. retention is the TTL of every bucket (DefaultRetention if not positive).
func New(s store, popular topQueries, retention time.Duration, opts ...Option) *Collector {
	if retention <= 0 {
		retention = DefaultRetention
	}
	c := &Collector{store: s, popular: popular, retention: retention, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RecordSearch records one served search. All writes are attempted; failures are joined.
func (c *Collector) RecordSearch(ctx context.Context, q query.Query, resp result.Response, dur time.Duration) error {
	now := c.now()
	day, hour := dayOf(now), hourOf(now)

	length := utf8.RuneCountInString(q.Text())
	words := len(strings.Fields(q.Text()))

	errs := []error{
		c.incr(ctx, counterKey(nameSearches, categoryTotal, day)),
		c.incr(ctx, hourKey(nameSearches, categoryTotal, day, hour)),
		c.incr(ctx, counterKey(nameResults, resultBucket(resp.TotalCount), day)),
		c.incr(ctx, counterKey(nameQueryLength, lengthBucket(length), day)),
		c.observe(ctx, AvgExecutionTime, day, millis(dur)),
		c.observe(ctx, AvgResultCount, day, float64(resp.TotalCount)),
		c.observe(ctx, AvgQueryLength, day, float64(length)),
		c.observe(ctx, AvgWordCount, day, float64(words)),
	}
	for _, t := range q.Types() {
		errs = append(errs, c.incr(ctx, counterKey(nameSearches, "type:"+string(t), day)))
	}
	return errors.Join(errs...)
}

// RecordSuggestion records one served suggestion request.
func (c *Collector) RecordSuggestion(ctx context.Context, _ string, _ []string, dur time.Duration) error {
	day := dayOf(c.now())
	return errors.Join(
		c.incr(ctx, counterKey(nameSuggestions, categoryTotal, day)),
		c.observe(ctx, AvgSuggestionTime, day, millis(dur)),
	)
}

// RecordCacheOutcome records a hit or miss for a cache category and for all categories.
func (c *Collector) RecordCacheOutcome(ctx context.Context, category string, hit bool) error {
	day := dayOf(c.now())
	o := outcome(hit)
	return errors.Join(
		c.incr(ctx, counterKey(nameCache, category+":"+o, day)),
		c.incr(ctx, counterKey(nameCache, categoryAll+":"+o, day)),
	)
}

// incr adds one to a counter and starts its retention on first write.
func (c *Collector) incr(ctx context.Context, k string) error {
	if _, err := c.store.IncrBy(ctx, k, 1); err != nil {
		return fmt.Errorf("metrics INCRBY %s: %w", k, err)
	}
	if err := c.store.Expire(ctx, k, c.retention, true); err != nil {
		return fmt.Errorf("metrics EXPIRE %s: %w", k, err)
	}
	return nil
}

// observe folds a value into a running average. The two fields are
// incremented separately, so readers may briefly see count and sum out of step.
func (c *Collector) observe(ctx context.Context, name, day string, v float64) error {
	k := avgKey(name, day)
	if _, err := c.store.HIncrBy(ctx, k, "count", 1); err != nil {
		return fmt.Errorf("metrics HINCRBY %s: %w", k, err)
	}
	if _, err := c.store.HIncrByFloat(ctx, k, "sum", v); err != nil {
		return fmt.Errorf("metrics HINCRBYFLOAT %s: %w", k, err)
	}
	if err := c.store.Expire(ctx, k, c.retention, true); err != nil {
		return fmt.Errorf("metrics EXPIRE %s: %w", k, err)
	}
	return nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
