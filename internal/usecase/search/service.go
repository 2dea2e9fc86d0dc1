package search

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/xsearch/internal/domain"
	"github.com/kailas-cloud/xsearch/internal/domain/search/key"
	"github.com/kailas-cloud/xsearch/internal/domain/search/query"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
	"github.com/kailas-cloud/xsearch/internal/repository/searchmetrics"
)

// Service defaults.
const (
	DefaultSuggestLimit  = 5
	MaxSuggestLimit      = 20
	DefaultPopularLimit  = 10
	MaxPopularLimit      = 100
	DefaultRetentionDays = 30
	statsTopQueries      = 10
)

// Cache outcome categories.
const (
	categorySearch  = "search"
	categorySuggest = "suggest"
	categoryStats   = "stats"
)

// Config tunes the service.
type Config struct {
	Limits        query.Limits
	RetentionDays int
}

// Service is the single entry point of cross-type search.
// Request order: cache lookup, aggregation, cache store, background recording.
type Service struct {
	agg      *Aggregator
	cache    Cache
	popular  Popularity
	metrics  Metrics
	recorder *Recorder
	cfg      Config
	group    singleflight.Group
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a search service.
func New(
	agg *Aggregator, cache Cache, popular Popularity, metrics Metrics,
	recorder *Recorder, cfg Config, logger *zap.Logger,
) *Service {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		agg:      agg,
		cache:    cache,
		popular:  popular,
		metrics:  metrics,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Search validates the options, serves from cache when possible and
// otherwise aggregates. Degraded responses are not cached.
func (s *Service) Search(ctx context.Context, text string, opts query.Options) (result.Response, error) {
	start := s.now()

	q, err := query.FromOptions(text, opts, s.cfg.Limits)
	if err != nil {
		return result.Response{}, fmt.Errorf("build query: %w", err)
	}

	k := key.Build(key.Search, q)
	var resp result.Response
	hit := s.cache.Get(ctx, key.Search, k, &resp)
	if !hit {
		v, err, _ := s.group.Do(k, func() (any, error) {
			// Shared by every waiter, so one caller's cancellation must not abort it.
			shared := context.WithoutCancel(ctx)
			r, err := s.agg.Aggregate(shared, q)
			if err != nil {
				return result.Response{}, err
			}
			if !r.Degraded() {
				s.cache.Put(shared, key.Search, k, r)
			}
			return r, nil
		})
		if err != nil {
			return result.Response{}, fmt.Errorf("aggregate: %w", err)
		}
		resp = v.(result.Response)
	}

	dur := s.now().Sub(start)
	s.recordCache(categorySearch, hit)
	s.submit("track_query", func(ctx context.Context) error {
		return s.popular.Track(ctx, q.Text())
	})
	s.submit("record_search", func(ctx context.Context) error {
		return s.metrics.RecordSearch(ctx, q, resp, dur)
	})
	return resp, nil
}

// Suggest returns distinct display titles matching prefix.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	start := s.now()

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, domain.NewValidationError("q", "query is required")
	}
	if utf8.RuneCountInString(prefix) > query.MaxTextLength {
		return nil, domain.NewValidationError("q", "query too long")
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	limit = min(limit, MaxSuggestLimit)

	k := key.ForSuggest(prefix, limit)
	var out []string
	hit := s.cache.Get(ctx, key.Suggest, k, &out)
	if !hit {
		v, err, _ := s.group.Do(k, func() (any, error) {
			shared := context.WithoutCancel(ctx)
			titles, err := s.agg.Suggest(shared, prefix, limit)
			if err != nil {
				return nil, err
			}
			s.cache.Put(shared, key.Suggest, k, titles)
			return titles, nil
		})
		if err != nil {
			return nil, fmt.Errorf("suggest: %w", err)
		}
		out = v.([]string)
	}

	dur := s.now().Sub(start)
	s.recordCache(categorySuggest, hit)
	s.submit("record_suggestion", func(ctx context.Context) error {
		return s.metrics.RecordSuggestion(ctx, prefix, out, dur)
	})
	return out, nil
}

// Stats returns per-type record counts and today's popular queries.
func (s *Service) Stats(ctx context.Context) (result.Stats, error) {
	k := key.ForStats()
	var stats result.Stats
	hit := s.cache.Get(ctx, key.Stats, k, &stats)
	s.recordCache(categoryStats, hit)
	if hit {
		return stats, nil
	}

	v, err, _ := s.group.Do(k, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		counts := s.agg.Counts(shared)
		st := result.Stats{Counts: make(map[record.Type]int, len(counts))}
		for _, t := range record.All() {
			n, ok := counts[t]
			if !ok {
				continue
			}
			st.Counts[t] = n
			st.Total += n
		}
		top, err := s.popular.Top(shared, statsTopQueries)
		if err != nil {
			s.logger.Warn("popular queries unavailable", zap.Error(err))
		}
		st.PopularQueries = nonNilPopular(top)
		s.cache.Put(shared, key.Stats, k, st)
		return st, nil
	})
	if err != nil {
		return result.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return v.(result.Stats), nil
}

// PopularQueries returns today's most searched queries.
func (s *Service) PopularQueries(ctx context.Context, limit int) ([]result.Popular, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	limit = min(limit, MaxPopularLimit)
	top, err := s.popular.Top(ctx, limit)
	if err != nil {
		s.logger.Warn("popular queries unavailable", zap.Error(err))
		return []result.Popular{}, nil
	}
	return nonNilPopular(top), nil
}

// RealtimeMetrics returns today's snapshot.
func (s *Service) RealtimeMetrics(ctx context.Context) (searchmetrics.Realtime, error) {
	rt, err := s.metrics.Realtime(ctx)
	if err != nil {
		return searchmetrics.Realtime{}, fmt.Errorf("realtime metrics: %w", err)
	}
	return rt, nil
}

// HistoricalMetrics returns the per-day breakdown between from and to inclusive.
func (s *Service) HistoricalMetrics(ctx context.Context, from, to time.Time) ([]searchmetrics.DayReport, error) {
	days, err := s.metrics.Range(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("historical metrics: %w", err)
	}
	return days, nil
}

// FlushCache clears cached entries whose key starts with prefix, or all of them.
func (s *Service) FlushCache(ctx context.Context, prefix string) (int, error) {
	n, err := s.cache.Flush(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("flush cache: %w", err)
	}
	s.logger.Info("cache flushed", zap.String("prefix", prefix), zap.Int("deleted", n))
	return n, nil
}

// CleanupMetrics deletes metric buckets older than retentionDays.
// A non-positive value uses the configured retention.
func (s *Service) CleanupMetrics(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = s.cfg.RetentionDays
	}
	n, err := s.metrics.Cleanup(ctx, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("cleanup metrics: %w", err)
	}
	s.logger.Info("metrics cleaned up", zap.Int("retention_days", retentionDays), zap.Int("deleted", n))
	return n, nil
}

// Close drains pending background recording.
func (s *Service) Close(ctx context.Context) error {
	return s.recorder.Close(ctx)
}

func (s *Service) recordCache(category string, hit bool) {
	if !s.cache.Enabled() {
		return
	}
	s.submit("record_cache_"+category, func(ctx context.Context) error {
		return s.metrics.RecordCacheOutcome(ctx, category, hit)
	})
}

func (s *Service) submit(name string, run func(ctx context.Context) error) {
	s.recorder.Submit(Job{Name: name, Run: run})
}

func nonNilPopular(p []result.Popular) []result.Popular {
	if p == nil {
		return []result.Popular{}
	}
	return p
}
