package index

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/db/elastic"
	"github.com/kailas-cloud/xsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
)

// elasticSearcher is the consumer interface for Elasticsearch (ISP).
type elasticSearcher interface {
	Search(ctx context.Context, q *elastic.Query) (*elastic.Result, error)
	Count(ctx context.Context, index string) (int, error)
}

// ElasticIndex queries one record type stored as JSON documents in Elasticsearch.
type ElasticIndex struct {
	client  elasticSearcher
	typ     record.Type
	name    string
	fields  []string
	maxHits int
	logger  *zap.Logger
}

// NewElastic creates an Elasticsearch backed index for a record type.
func NewElastic(c elasticSearcher, t record.Type, name string, maxHits int, logger *zap.Logger) *ElasticIndex {
	if name == "" {
		name = string(t) + "s"
	}
	return &ElasticIndex{
		client:  c,
		typ:     t,
		name:    name,
		fields:  searchFields(t),
		maxHits: maxHits,
		logger:  logger,
	}
}

// Name returns the Elasticsearch index name.
func (e *ElasticIndex) Name() string { return e.name }

// Query runs a multi_match query with filter clauses.
func (e *ElasticIndex) Query(ctx context.Context, text string, expr filter.Expression) ([]record.Hit, error) {
	return e.search(ctx, &elastic.Query{
		Index:   e.name,
		Text:    text,
		Fields:  e.fields,
		Filters: expr,
		Limit:   e.maxHits,
	})
}

// Suggest runs a bool_prefix query and returns at most limit hits.
func (e *ElasticIndex) Suggest(ctx context.Context, prefix string, limit int) ([]record.Hit, error) {
	return e.search(ctx, &elastic.Query{
		Index:  e.name,
		Text:   prefix,
		Fields: e.fields,
		Prefix: true,
		Limit:  limit,
	})
}

// Count returns the number of documents in the index.
func (e *ElasticIndex) Count(ctx context.Context) (int, error) {
	n, err := e.client.Count(ctx, e.name)
	if err != nil {
		return 0, wrapUnavailable(e.typ, err)
	}
	return n, nil
}

func (e *ElasticIndex) search(ctx context.Context, q *elastic.Query) ([]record.Hit, error) {
	res, err := e.client.Search(ctx, q)
	if err != nil {
		return nil, wrapUnavailable(e.typ, err)
	}

	hits := make([]record.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		rec, err := record.DecodeJSON(e.typ, h.ID, h.Source)
		if err != nil {
			e.logger.Warn("Skipping undecodable document", zap.String("id", h.ID), zap.Error(err))
			continue
		}
		hits = append(hits, rec)
	}
	return hits, nil
}
