package search

import (
	"sort"

	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
)

// mergeRanked concatenates per-type lists and orders them by score descending.
// Ties keep the earlier per-type position first, then the earlier record type.
func mergeRanked(types []record.Type, byType map[record.Type][]result.Envelope) []result.Envelope {
	type ranked struct {
		env  result.Envelope
		pos  int
		rank int
	}

	total := 0
	for _, t := range types {
		total += len(byType[t])
	}

	merged := make([]ranked, 0, total)
	for _, t := range types {
		for i, env := range byType[t] {
			merged = append(merged, ranked{env: env, pos: i, rank: t.Rank()})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.env.RelevanceScore != b.env.RelevanceScore {
			return a.env.RelevanceScore > b.env.RelevanceScore
		}
		if a.pos != b.pos {
			return a.pos < b.pos
		}
		return a.rank < b.rank
	})

	out := make([]result.Envelope, len(merged))
	for i, r := range merged {
		out[i] = r.env
	}
	return out
}

// paginate returns size results starting at offset. A page past the end is empty.
func paginate(all []result.Envelope, offset, size int) []result.Envelope {
	start := offset
	if start >= len(all) || start < 0 {
		return []result.Envelope{}
	}
	end := min(start+size, len(all))
	return append([]result.Envelope(nil), all[start:end]...)
}
