package index

import (
	"context"

	"github.com/kailas-cloud/xsearch/internal/db"
	"github.com/kailas-cloud/xsearch/internal/db/elastic"
)

// mockSearcher implements searcher for tests.
type mockSearcher struct {
	searchTextFn  func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
}

func (m *mockSearcher) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockSearcher) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

// mockElastic implements elasticSearcher for tests.
type mockElastic struct {
	searchFn func(ctx context.Context, q *elastic.Query) (*elastic.Result, error)
	countFn  func(ctx context.Context, index string) (int, error)
}

func (m *mockElastic) Search(ctx context.Context, q *elastic.Query) (*elastic.Result, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &elastic.Result{}, nil
}

func (m *mockElastic) Count(ctx context.Context, index string) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, index)
	}
	return 0, nil
}

// mockManager implements indexManager for tests.
type mockManager struct {
	existing map[string]bool
	created  []*db.IndexDefinition
	createFn func(def *db.IndexDefinition) error
}

func (m *mockManager) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.created = append(m.created, def)
	if m.createFn != nil {
		return m.createFn(def)
	}
	return nil
}

func (m *mockManager) IndexExists(_ context.Context, name string) (bool, error) {
	return m.existing[name], nil
}
