package index

import (
	"sort"

	"github.com/kailas-cloud/xsearch/internal/db"
	"github.com/kailas-cloud/xsearch/internal/domain"
	"github.com/kailas-cloud/xsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
)

// textField is a full-text searchable field and its relevance weight.
type textField struct {
	name   string
	weight float64
}

var textFields = map[record.Type][]textField{
	record.Profile:     {{"name", 3}, {"headline", 1}},
	record.Listing:     {{"title", 2}, {"description", 1}},
	record.Achievement: {{"title", 2}, {"description", 1}},
}

// listFields hold several values joined by record.SkillSeparator.
var listFields = map[string]bool{"skills": true}

// DocumentPrefix is the key prefix of hash documents of a record type.
func DocumentPrefix(t record.Type) string {
	return domain.KeyPrefix + string(t) + ":"
}

// DefaultName is the index name used when none is configured.
func DefaultName(t record.Type) string {
	return domain.KeyPrefix + "idx:" + string(t)
}

// Definition returns the FT index over the hash documents of a record type.
// Filterable fields come from the filter whitelist, so every accepted filter is indexed.
func Definition(t record.Type, name string) (*db.IndexDefinition, error) {
	b := db.NewIndex(name).Prefix(DocumentPrefix(t))
	for _, f := range textFields[t] {
		b.Text(f.name, f.weight)
	}

	kinds := filter.Fields(t)
	names := make([]string, 0, len(kinds))
	for n := range kinds {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		switch {
		case kinds[n] == filter.Numeric:
			b.Numeric(n)
		case listFields[n]:
			b.TagList(n, record.SkillSeparator, false)
		default:
			b.Tag(n)
		}
	}
	return b.Build()
}

// searchFields renders text fields as "name^weight" for multi_match queries.
func searchFields(t record.Type) []string {
	fields := textFields[t]
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.weight > 1 {
			out = append(out, f.name+"^"+filter.FormatNumber(f.weight))
			continue
		}
		out = append(out, f.name)
	}
	return out
}
