package key

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/kailas-cloud/xsearch/internal/domain"
	"github.com/kailas-cloud/xsearch/internal/domain/search/query"
)

// Namespace is a logical class of cached artifacts.
type Namespace string

const (
	// Search holds aggregated search responses.
	Search Namespace = "search"
	// Suggest holds suggestion lists.
	Suggest Namespace = "suggest"
	// Stats holds summary statistics.
	Stats Namespace = "stats"
)

// CachePrefix is the common prefix of every cache key.
var CachePrefix = domain.KeyPrefix + "cache:"

// Prefix returns the key prefix of a namespace.
func Prefix(ns Namespace) string {
	return CachePrefix + string(ns) + ":"
}

type canonicalFilter struct {
	Type  string `json:"type"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

type canonicalQuery struct {
	Text     string            `json:"text"`
	Types    []string          `json:"types"`
	Filters  []canonicalFilter `json:"filters"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// Build derives a deterministic cache key for a query. Logically equal
// queries map to the same key regardless of map iteration or type order.
func Build(ns Namespace, q query.Query) string {
	types := q.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	sort.Strings(names)

	var filters []canonicalFilter
	for _, t := range types {
		preds := q.FiltersFor(t)
		fields := make([]string, 0, len(preds))
		for f := range preds {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			filters = append(filters, canonicalFilter{Type: string(t), Field: f, Value: preds[f].Canonical()})
		}
	}
	sort.SliceStable(filters, func(i, j int) bool { return filters[i].Type < filters[j].Type })

	return digest(ns, canonicalQuery{
		Text:     q.Text(),
		Types:    names,
		Filters:  filters,
		Page:     q.Page(),
		PageSize: q.PageSize(),
	})
}

// ForSuggest derives the cache key of a suggestion list.
func ForSuggest(prefix string, limit int) string {
	return digest(Suggest, map[string]string{"prefix": prefix, "limit": strconv.Itoa(limit)})
}

// ForStats returns the cache key of the summary statistics.
func ForStats() string {
	return Prefix(Stats) + "summary"
}

func digest(ns Namespace, v any) string {
	// Marshal of structs, slices and string maps is deterministic (map keys are sorted).
	raw, _ := json.Marshal(v)
	sum := sha256.Sum256(append([]byte(string(ns)+":"), raw...))
	return Prefix(ns) + hex.EncodeToString(sum[:])
}
