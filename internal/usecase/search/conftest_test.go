package search

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kailas-cloud/xsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xsearch/internal/domain/search/key"
	"github.com/kailas-cloud/xsearch/internal/domain/search/query"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
	"github.com/kailas-cloud/xsearch/internal/repository/searchmetrics"
)

// --- Mocks ---

type mockIndex struct {
	mu          sync.Mutex
	hits        []record.Hit
	err         error
	block       bool
	count       int
	countErr    error
	queries     int
	lastText    string
	lastExpr    filter.Expression
	suggestions []record.Hit
	suggestErr  error
	lastLimit   int
}

func (m *mockIndex) Query(ctx context.Context, text string, expr filter.Expression) ([]record.Hit, error) {
	m.mu.Lock()
	m.queries++
	m.lastText = text
	m.lastExpr = expr
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.hits, m.err
}

func (m *mockIndex) Suggest(_ context.Context, _ string, limit int) ([]record.Hit, error) {
	m.mu.Lock()
	m.lastLimit = limit
	m.mu.Unlock()
	return m.suggestions, m.suggestErr
}

func (m *mockIndex) Count(_ context.Context) (int, error) {
	return m.count, m.countErr
}

func (m *mockIndex) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

type memCache struct {
	mu      sync.Mutex
	enabled bool
	entries map[string][]byte
	puts    int
	flushed string
}

func newMemCache() *memCache {
	return &memCache{enabled: true, entries: make(map[string][]byte)}
}

func (c *memCache) Enabled() bool { return c.enabled }

func (c *memCache) Get(_ context.Context, _ key.Namespace, k string, dst any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[k]
	if !ok || !c.enabled {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (c *memCache) Put(_ context.Context, _ key.Namespace, k string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	raw, _ := json.Marshal(value)
	c.entries[k] = raw
	c.puts++
}

func (c *memCache) Flush(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushed = prefix
	n := len(c.entries)
	c.entries = make(map[string][]byte)
	return n, nil
}

func (c *memCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type mockPopularity struct {
	mu      sync.Mutex
	tracked []string
	top     []result.Popular
	topErr  error
}

func (m *mockPopularity) Track(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked = append(m.tracked, text)
	return nil
}

func (m *mockPopularity) Top(_ context.Context, limit int) ([]result.Popular, error) {
	if m.topErr != nil {
		return nil, m.topErr
	}
	if len(m.top) > limit {
		return m.top[:limit], nil
	}
	return m.top, nil
}

type mockMetrics struct {
	mu            sync.Mutex
	searches      []result.Response
	suggestions   [][]string
	cacheOutcomes map[string][]bool
	recordErr     error
	realtime      searchmetrics.Realtime
	days          []searchmetrics.DayReport
	rangeErr      error
	cleanupDays   int
	cleaned       int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{cacheOutcomes: make(map[string][]bool)}
}

func (m *mockMetrics) RecordSearch(_ context.Context, _ query.Query, resp result.Response, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, resp)
	return m.recordErr
}

func (m *mockMetrics) RecordSuggestion(_ context.Context, _ string, s []string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suggestions = append(m.suggestions, s)
	return m.recordErr
}

func (m *mockMetrics) RecordCacheOutcome(_ context.Context, category string, hit bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheOutcomes[category] = append(m.cacheOutcomes[category], hit)
	return m.recordErr
}

func (m *mockMetrics) Realtime(_ context.Context) (searchmetrics.Realtime, error) {
	return m.realtime, nil
}

func (m *mockMetrics) Range(_ context.Context, _, _ time.Time) ([]searchmetrics.DayReport, error) {
	return m.days, m.rangeErr
}

func (m *mockMetrics) Cleanup(_ context.Context, retentionDays int) (int, error) {
	m.cleanupDays = retentionDays
	return m.cleaned, nil
}

var _ Index = (*mockIndex)(nil)

// --- Fixtures ---

func listingHit(id string, rating float64) record.Hit {
	return record.NewListingHit(record.ListingRecord{ID: id, Slug: id, Title: "Listing " + id, Rating: rating})
}

func profileHit(id, name string, rating float64) record.Hit {
	return record.NewProfileHit(record.ProfileRecord{ID: id, Slug: id, Name: name, Rating: rating})
}

func achievementHit(id, title string) record.Hit {
	return record.NewAchievementHit(record.AchievementRecord{ID: id, Title: title, ProfileID: "p1"})
}

// ratedListings returns listings l1..ln with ratings n..1.
func ratedListings(n int) []record.Hit {
	hits := make([]record.Hit, n)
	for i := range hits {
		hits[i] = listingHit("l"+string(rune('1'+i)), float64(n-i))
	}
	return hits
}

func ids(envs []result.Envelope) []string {
	out := make([]string, len(envs))
	for i, e := range envs {
		out[i] = e.ID
	}
	return out
}
