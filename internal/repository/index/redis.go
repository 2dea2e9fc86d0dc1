package index

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/db"
	"github.com/kailas-cloud/xsearch/internal/domain"
	"github.com/kailas-cloud/xsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
)

// searcher is the consumer interface for FT.SEARCH (ISP).
type searcher interface {
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// RedisIndex queries one record type through an FT index over hash documents.
type RedisIndex struct {
	store   searcher
	typ     record.Type
	name    string
	prefix  string
	maxHits int
	logger  *zap.Logger
}

// NewRedis creates an FT.SEARCH backed index for a record type.
func NewRedis(s searcher, t record.Type, name string, maxHits int, logger *zap.Logger) *RedisIndex {
	if name == "" {
		name = DefaultName(t)
	}
	return &RedisIndex{
		store:   s,
		typ:     t,
		name:    name,
		prefix:  DocumentPrefix(t),
		maxHits: maxHits,
		logger:  logger,
	}
}

// Name returns the FT index name.
func (r *RedisIndex) Name() string { return r.name }

// Query runs a full-text query with a pre-filter and decodes hits in index order.
func (r *RedisIndex) Query(ctx context.Context, text string, expr filter.Expression) ([]record.Hit, error) {
	return r.search(ctx, text, false, expr, r.maxHits)
}

// Suggest runs a prefix query and returns at most limit hits.
func (r *RedisIndex) Suggest(ctx context.Context, prefix string, limit int) ([]record.Hit, error) {
	return r.search(ctx, prefix, true, filter.Expression{}, limit)
}

// Count returns the number of indexed documents.
func (r *RedisIndex) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.name, "*")
	if err != nil {
		return 0, wrapUnavailable(r.typ, err)
	}
	return n, nil
}

func (r *RedisIndex) search(
	ctx context.Context, text string, prefix bool, expr filter.Expression, limit int,
) ([]record.Hit, error) {
	sr, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName: r.name,
		Query:     text,
		Prefix:    prefix,
		Filters:   expr,
		Limit:     limit,
	})
	if err != nil {
		return nil, wrapUnavailable(r.typ, err)
	}
	if sr == nil {
		return nil, nil
	}

	hits := make([]record.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		h, err := record.Decode(r.typ, strings.TrimPrefix(e.Key, r.prefix), e.Fields)
		if err != nil {
			r.logger.Warn("Skipping undecodable hit", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		hits = append(hits, h)
	}
	return hits, nil
}

func wrapUnavailable(t record.Type, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrIndexUnavailable, t, err)
}
