package query

import (
	"github.com/kailas-cloud/xsearch/internal/domain"
	"github.com/kailas-cloud/xsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
)

// Options are the loosely typed search options accepted at the boundary.
type Options struct {
	PerPage int                       `json:"per_page"`
	Page    int                       `json:"page"`
	Types   []string                  `json:"types"`
	Filters map[string]map[string]any `json:"filters"`
}

// Limits bound the defaults applied to Options.
type Limits struct {
	DefaultPerPage int
	MaxPerPage     int
}

// DefaultLimits returns the stock per-page bounds.
func DefaultLimits() Limits {
	return Limits{DefaultPerPage: DefaultPerPage, MaxPerPage: DefaultMaxLimit}
}

// FromOptions applies defaults, clamps page size and builds a Query.
// Unsupported type names and malformed filter values are validation errors.
func FromOptions(text string, opts Options, limits Limits) (Query, error) {
	if limits.DefaultPerPage <= 0 {
		limits.DefaultPerPage = DefaultPerPage
	}
	if limits.MaxPerPage <= 0 {
		limits.MaxPerPage = DefaultMaxLimit
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = limits.DefaultPerPage
	}
	if perPage > limits.MaxPerPage {
		perPage = limits.MaxPerPage
	}
	page := opts.Page
	if page <= 0 {
		page = DefaultPage
	}

	types := make([]record.Type, 0, len(opts.Types))
	for _, name := range opts.Types {
		t, err := record.Parse(name)
		if err != nil {
			return Query{}, domain.NewValidationError("types", err.Error())
		}
		types = append(types, t)
	}

	filters := make(Filters, len(opts.Filters))
	for typeName, fields := range opts.Filters {
		t, err := record.Parse(typeName)
		if err != nil {
			return Query{}, domain.NewValidationError("filters", err.Error())
		}
		preds := make(map[string]filter.Predicate, len(fields))
		for field, raw := range fields {
			p, err := filter.ParsePredicate(raw)
			if err != nil {
				return Query{}, domain.NewValidationError("filters."+typeName+"."+field, err.Error())
			}
			preds[field] = p
		}
		filters[t] = preds
	}

	return New(text, types, filters, page, perPage)
}
