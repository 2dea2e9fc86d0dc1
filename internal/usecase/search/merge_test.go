package search

import (
	"slices"
	"testing"

	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
)

func env(id string, score float64) result.Envelope {
	return result.Envelope{ID: id, RelevanceScore: score}
}

func TestMergeRanked_SortsByScore(t *testing.T) {
	merged := mergeRanked(record.All(), map[record.Type][]result.Envelope{
		record.Profile:     {env("p1", 1.2), env("p2", 3)},
		record.Listing:     {env("l1", 2)},
		record.Achievement: {env("a1", 1.5)},
	})
	want := []string{"p2", "l1", "a1", "p1"}
	if got := ids(merged); !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestMergeRanked_TiesByPositionThenType(t *testing.T) {
	merged := mergeRanked(record.All(), map[record.Type][]result.Envelope{
		record.Profile:     {env("p1", 2), env("p2", 1.5)},
		record.Listing:     {env("l1", 1.5), env("l2", 2)},
		record.Achievement: {env("a1", 1.5)},
	})
	// Score 2: p1 (pos 0) before l2 (pos 1).
	// Score 1.5: l1 and a1 (pos 0, listing first), then p2 (pos 1).
	want := []string{"p1", "l2", "l1", "a1", "p2"}
	if got := ids(merged); !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestMergeRanked_Deterministic(t *testing.T) {
	byType := map[record.Type][]result.Envelope{
		record.Profile: {env("p1", 1), env("p2", 1), env("p3", 1)},
		record.Listing: {env("l1", 1), env("l2", 1)},
	}
	first := ids(mergeRanked(record.All(), byType))
	for range 10 {
		if got := ids(mergeRanked(record.All(), byType)); !slices.Equal(got, first) {
			t.Fatalf("non-deterministic order: %v vs %v", got, first)
		}
	}
}

func TestPaginate(t *testing.T) {
	all := []result.Envelope{env("a", 5), env("b", 4), env("c", 3), env("d", 2), env("e", 1)}

	tests := []struct {
		offset, size int
		want         []string
	}{
		{0, 2, []string{"a", "b"}},
		{4, 2, []string{"e"}},
		{6, 2, []string{}},
		{0, 10, []string{"a", "b", "c", "d", "e"}},
	}
	for _, tt := range tests {
		got := paginate(all, tt.offset, tt.size)
		if got == nil {
			t.Errorf("paginate(%d, %d) returned nil", tt.offset, tt.size)
		}
		if !slices.Equal(ids(got), tt.want) {
			t.Errorf("paginate(%d, %d) = %v, want %v", tt.offset, tt.size, ids(got), tt.want)
		}
	}
}
