package db

import "github.com/kailas-cloud/xsearch/internal/domain/search/filter"

// TextQuery is the input for a full-text search.
type TextQuery struct {
	IndexName    string
	Query        string
	Prefix       bool // match query terms as prefixes (suggestions)
	Filters      filter.Expression
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
