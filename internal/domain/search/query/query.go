package query

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/xsearch/internal/domain"
	"github.com/kailas-cloud/xsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
)

// Query parameter limits.
const (
	// MaxTextLength is the maximum allowed query length in runes.
	MaxTextLength   = 500
	DefaultPerPage  = 15
	DefaultPage     = 1
	DefaultMaxLimit = 100
)

// Filters maps a record type to its per-field predicates.
type Filters map[record.Type]map[string]filter.Predicate

// Query is a validated, immutable cross-type search query.
type Query struct {
	text     string
	types    []record.Type
	filters  Filters
	page     int
	pageSize int
}

// New validates search parameters. Types are de-duplicated and put in
// enumeration order; an empty set means every type.
func New(text string, types []record.Type, filters Filters, page, pageSize int) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, domain.NewValidationError("q", "query is required")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return Query{}, domain.NewValidationError("q", "query too long")
	}
	if page < 1 {
		return Query{}, domain.NewValidationError("page", "must be at least 1")
	}
	if pageSize <= 0 {
		return Query{}, domain.NewValidationError("per_page", "must be positive")
	}

	normalized, err := normalizeTypes(types)
	if err != nil {
		return Query{}, err
	}

	copied := make(Filters, len(filters))
	for t, preds := range filters {
		if !t.Valid() {
			return Query{}, domain.NewValidationError("filters", "unsupported record type "+string(t))
		}
		if len(preds) == 0 {
			continue
		}
		m := make(map[string]filter.Predicate, len(preds))
		for k, v := range preds {
			m[k] = v
		}
		copied[t] = m
	}

	return Query{
		text:     text,
		types:    normalized,
		filters:  copied,
		page:     page,
		pageSize: pageSize,
	}, nil
}

func normalizeTypes(types []record.Type) ([]record.Type, error) {
	if len(types) == 0 {
		return record.All(), nil
	}
	seen := make(map[record.Type]bool, len(types))
	for _, t := range types {
		if !t.Valid() {
			return nil, domain.NewValidationError("types", "unsupported record type "+string(t))
		}
		seen[t] = true
	}
	out := make([]record.Type, 0, len(seen))
	for _, t := range record.All() {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out, nil
}

// Text returns the trimmed free-text query.
func (q Query) Text() string { return q.text }

// Types returns the requested record types in enumeration order.
func (q Query) Types() []record.Type { return append([]record.Type(nil), q.types...) }

// FiltersFor returns a copy of the predicates for one type.
func (q Query) FiltersFor(t record.Type) map[string]filter.Predicate {
	preds := q.filters[t]
	if len(preds) == 0 {
		return nil
	}
	out := make(map[string]filter.Predicate, len(preds))
	for k, v := range preds {
		out[k] = v
	}
	return out
}

// Page returns the 1-based page number.
func (q Query) Page() int { return q.page }

// PageSize returns the number of results per page.
func (q Query) PageSize() int { return q.pageSize }

// Offset returns the index of the first result of the page in the merged list.
func (q Query) Offset() int { return (q.page - 1) * q.pageSize }
