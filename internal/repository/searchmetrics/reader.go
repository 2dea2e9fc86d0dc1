package searchmetrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kailas-cloud/xsearch/internal/db"
	"github.com/kailas-cloud/xsearch/internal/domain"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
)

// MaxRangeDays bounds a historical report.
const MaxRangeDays = 366

// RealtimeTopQueries is the number of popular queries in a realtime snapshot.
const RealtimeTopQueries = 5

// CacheCategories are the cache outcome categories reported by readers.
var CacheCategories = []string{"search", "suggest", "stats", categoryAll}

// Realtime is a snapshot of today's activity.
type Realtime struct {
	TodayTotal        int64            `json:"today_total"`
	CurrentHourTotal  int64            `json:"current_hour_total"`
	CacheHitRate      float64          `json:"cache_hit_rate"`
	AvgResponseTimeMs float64          `json:"avg_response_time_ms"`
	TopQueries        []result.Popular `json:"top_queries"`
}

// CacheOutcome is the hit/miss breakdown of one cache category.
type CacheOutcome struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// DayReport is the per-day breakdown of every metric family.
type DayReport struct {
	Date          string                  `json:"date"`
	TotalSearches int64                   `json:"total_searches"`
	Suggestions   int64                   `json:"suggestions"`
	ByType        map[string]int64        `json:"by_type"`
	Cache         map[string]CacheOutcome `json:"cache"`
	Results       map[string]int64        `json:"results"`
	QueryLength   map[string]int64        `json:"query_length"`
	Averages      map[string]float64      `json:"averages"`
}

var (
	resultBuckets = []string{"empty", "few", "many"}
	lengthBuckets = []string{"short", "medium", "long"}
	averageNames  = []string{AvgExecutionTime, AvgResultCount, AvgQueryLength, AvgWordCount, AvgSuggestionTime}
)

// Realtime returns today's totals, the cache hit rate in percent,
// the average response time and the top queries.
func (c *Collector) Realtime(ctx context.Context) (Realtime, error) {
	now := c.now()
	day, hour := dayOf(now), hourOf(now)

	today, err := c.counter(ctx, counterKey(nameSearches, categoryTotal, day))
	if err != nil {
		return Realtime{}, err
	}
	thisHour, err := c.counter(ctx, hourKey(nameSearches, categoryTotal, day, hour))
	if err != nil {
		return Realtime{}, err
	}
	cache, err := c.cacheOutcome(ctx, categoryAll, day)
	if err != nil {
		return Realtime{}, err
	}
	avg, err := c.Average(ctx, AvgExecutionTime, now)
	if err != nil {
		return Realtime{}, err
	}

	top := []result.Popular{}
	if c.popular != nil {
		if top, err = c.popular.Top(ctx, RealtimeTopQueries); err != nil {
			return Realtime{}, fmt.Errorf("top queries: %w", err)
		}
	}

	return Realtime{
		TodayTotal:        today,
		CurrentHourTotal:  thisHour,
		CacheHitRate:      cache.HitRate,
		AvgResponseTimeMs: round2(avg),
		TopQueries:        top,
	}, nil
}

// Range returns one report per day from from to to inclusive.
func (c *Collector) Range(ctx context.Context, from, to time.Time) ([]DayReport, error) {
	from, to = truncateDay(from), truncateDay(to)
	if to.Before(from) {
		return nil, domain.NewValidationError("to", "must not be before from")
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > MaxRangeDays {
		return nil, domain.NewValidationError("to", fmt.Sprintf("range exceeds %d days", MaxRangeDays))
	}

	out := make([]DayReport, 0, days)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		r, err := c.day(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Average returns sum/count of a named average for the day of t, or 0 when unobserved.
func (c *Collector) Average(ctx context.Context, name string, t time.Time) (float64, error) {
	k := avgKey(name, dayOf(t))
	m, err := c.store.HGetAll(ctx, k)
	if err != nil {
		return 0, fmt.Errorf("metrics HGETALL %s: %w", k, err)
	}
	count, _ := strconv.ParseInt(m["count"], 10, 64)
	if count <= 0 {
		return 0, nil
	}
	sum, _ := strconv.ParseFloat(m["sum"], 64)
	return sum / float64(count), nil
}

// Cleanup deletes metric buckets dated before today minus retentionDays and returns how many were removed.
func (c *Collector) Cleanup(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays < 1 {
		return 0, domain.NewValidationError("retention_days", "must be at least 1")
	}
	cutoff := truncateDay(c.now()).AddDate(0, 0, -retentionDays)

	keys, err := c.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("metrics SCAN: %w", err)
	}

	var stale []string
	for _, k := range keys {
		if d, ok := keyDate(k); ok && d.Before(cutoff) {
			stale = append(stale, k)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	n, err := c.store.Del(ctx, stale...)
	if err != nil {
		return 0, fmt.Errorf("metrics DEL: %w", err)
	}
	return n, nil
}

func (c *Collector) day(ctx context.Context, d time.Time) (DayReport, error) {
	day := dayOf(d)
	r := DayReport{
		Date:        day,
		ByType:      make(map[string]int64, 3),
		Cache:       make(map[string]CacheOutcome, len(CacheCategories)),
		Results:     make(map[string]int64, len(resultBuckets)),
		QueryLength: make(map[string]int64, len(lengthBuckets)),
		Averages:    make(map[string]float64, len(averageNames)),
	}

	var err error
	if r.TotalSearches, err = c.counter(ctx, counterKey(nameSearches, categoryTotal, day)); err != nil {
		return DayReport{}, err
	}
	if r.Suggestions, err = c.counter(ctx, counterKey(nameSuggestions, categoryTotal, day)); err != nil {
		return DayReport{}, err
	}
	for _, t := range record.All() {
		if r.ByType[string(t)], err = c.counter(ctx, counterKey(nameSearches, "type:"+string(t), day)); err != nil {
			return DayReport{}, err
		}
	}
	for _, cat := range CacheCategories {
		if r.Cache[cat], err = c.cacheOutcome(ctx, cat, day); err != nil {
			return DayReport{}, err
		}
	}
	for _, b := range resultBuckets {
		if r.Results[b], err = c.counter(ctx, counterKey(nameResults, b, day)); err != nil {
			return DayReport{}, err
		}
	}
	for _, b := range lengthBuckets {
		if r.QueryLength[b], err = c.counter(ctx, counterKey(nameQueryLength, b, day)); err != nil {
			return DayReport{}, err
		}
	}
	for _, name := range averageNames {
		avg, err := c.Average(ctx, name, d)
		if err != nil {
			return DayReport{}, err
		}
		r.Averages[name] = round2(avg)
	}
	return r, nil
}

func (c *Collector) cacheOutcome(ctx context.Context, category, day string) (CacheOutcome, error) {
	hits, err := c.counter(ctx, counterKey(nameCache, category+":hit", day))
	if err != nil {
		return CacheOutcome{}, err
	}
	misses, err := c.counter(ctx, counterKey(nameCache, category+":miss", day))
	if err != nil {
		return CacheOutcome{}, err
	}
	o := CacheOutcome{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		o.HitRate = round2(float64(hits) / float64(total) * 100)
	}
	return o, nil
}

// counter reads a counter; a missing key is 0.
func (c *Collector) counter(ctx context.Context, k string) (int64, error) {
	data, err := c.store.Get(ctx, k)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("metrics GET %s: %w", k, err)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("metrics GET %s parse: %w", k, err)
	}
	return n, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
