package elastic

import (
	"encoding/json"

	"github.com/kailas-cloud/xsearch/internal/domain/search/filter"
)

// Query is a full-text query with structured filters.
type Query struct {
	Index string
	Text  string
	// Fields are the searched fields with optional "^boost" suffix.
	Fields  []string
	Prefix  bool
	Filters filter.Expression
	Limit   int
}

// Result is a page of hits and the total match count.
type Result struct {
	Total int
	Hits  []Hit
}

// Hit is one matching document.
type Hit struct {
	ID     string
	Score  float64
	Source json.RawMessage
}

// buildSearchBody renders a bool query: the text clause scores, the filter groups don't.
func buildSearchBody(q *Query) map[string]any {
	boolQuery := map[string]any{}

	if q.Text != "" {
		match := map[string]any{
			"query":    q.Text,
			"operator": "and",
		}
		if len(q.Fields) > 0 {
			match["fields"] = q.Fields
		}
		if q.Prefix {
			match["type"] = "bool_prefix"
		}
		boolQuery["must"] = []any{map[string]any{"multi_match": match}}
	} else {
		boolQuery["must"] = []any{map[string]any{"match_all": map[string]any{}}}
	}

	if clauses := buildFilter(q.Filters); len(clauses) > 0 {
		boolQuery["filter"] = clauses
	}

	return map[string]any{
		"size":             q.Limit,
		"track_total_hits": true,
		"query":            map[string]any{"bool": boolQuery},
	}
}

func buildFilter(expr filter.Expression) []any {
	groups := expr.Groups()
	out := make([]any, 0, len(groups))
	for _, g := range groups {
		if len(g) == 1 {
			out = append(out, buildCondition(g[0]))
			continue
		}
		should := make([]any, 0, len(g))
		for _, c := range g {
			should = append(should, buildCondition(c))
		}
		out = append(out, map[string]any{
			"bool": map[string]any{"should": should, "minimum_should_match": 1},
		})
	}
	return out
}

func buildCondition(c filter.Condition) map[string]any {
	if !c.IsNumeric() {
		return map[string]any{"term": map[string]any{c.Field(): c.Text()}}
	}
	switch c.Op() {
	case filter.OpGTE:
		return map[string]any{"range": map[string]any{c.Field(): map[string]any{"gte": c.Number()}}}
	case filter.OpLTE:
		return map[string]any{"range": map[string]any{c.Field(): map[string]any{"lte": c.Number()}}}
	default:
		return map[string]any{"term": map[string]any{c.Field(): c.Number()}}
	}
}
