package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/xsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xsearch/internal/domain/search/key"
	"github.com/kailas-cloud/xsearch/internal/domain/search/query"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
	"github.com/kailas-cloud/xsearch/internal/repository/searchmetrics"
)

// Index is the full-text query capability of one record type.
type Index interface {
	// Query returns hits in the index's own relevance order.
	Query(ctx context.Context, text string, expr filter.Expression) ([]record.Hit, error)
	// Suggest returns at most limit hits matching text as a prefix.
	Suggest(ctx context.Context, prefix string, limit int) ([]record.Hit, error)
	Count(ctx context.Context) (int, error)
}

// Indexes maps each record type to its index.
type Indexes map[record.Type]Index

// Cache stores aggregated responses, suggestions and stats.
type Cache interface {
	Enabled() bool
	Get(ctx context.Context, ns key.Namespace, k string, dst any) bool
	Put(ctx context.Context, ns key.Namespace, k string, value any)
	Flush(ctx context.Context, prefix string) (int, error)
}

// Popularity counts queries per day.
type Popularity interface {
	Track(ctx context.Context, text string) error
	Top(ctx context.Context, limit int) ([]result.Popular, error)
}

// Metrics records and reads time-bucketed search metrics.
type Metrics interface {
	RecordSearch(ctx context.Context, q query.Query, resp result.Response, dur time.Duration) error
	RecordSuggestion(ctx context.Context, prefix string, suggestions []string, dur time.Duration) error
	RecordCacheOutcome(ctx context.Context, category string, hit bool) error
	Realtime(ctx context.Context) (searchmetrics.Realtime, error)
	Range(ctx context.Context, from, to time.Time) ([]searchmetrics.DayReport, error)
	Cleanup(ctx context.Context, retentionDays int) (int, error)
}
