package chi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/domain/search/query"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
	"github.com/kailas-cloud/xsearch/internal/repository/searchmetrics"
	"github.com/kailas-cloud/xsearch/internal/repository/throttle"
	healthuc "github.com/kailas-cloud/xsearch/internal/usecase/health"
)

// --- Mocks ---

type mockSearch struct {
	lastText    string
	lastOpts    query.Options
	resp        result.Response
	err         error
	suggestions []string
	lastLimit   int
	stats       result.Stats
	popular     []result.Popular
	realtime    searchmetrics.Realtime
	from, to    time.Time
	flushPrefix string
	flushed     int
	cleanupDays int
}

func (m *mockSearch) Search(_ context.Context, text string, opts query.Options) (result.Response, error) {
	m.lastText = text
	m.lastOpts = opts
	return m.resp, m.err
}

func (m *mockSearch) Suggest(_ context.Context, prefix string, limit int) ([]string, error) {
	m.lastText = prefix
	m.lastLimit = limit
	return m.suggestions, m.err
}

func (m *mockSearch) Stats(_ context.Context) (result.Stats, error) { return m.stats, m.err }

func (m *mockSearch) PopularQueries(_ context.Context, limit int) ([]result.Popular, error) {
	m.lastLimit = limit
	return m.popular, m.err
}

func (m *mockSearch) RealtimeMetrics(_ context.Context) (searchmetrics.Realtime, error) {
	return m.realtime, m.err
}

func (m *mockSearch) HistoricalMetrics(_ context.Context, from, to time.Time) ([]searchmetrics.DayReport, error) {
	m.from, m.to = from, to
	return []searchmetrics.DayReport{}, m.err
}

func (m *mockSearch) FlushCache(_ context.Context, prefix string) (int, error) {
	m.flushPrefix = prefix
	return m.flushed, m.err
}

func (m *mockSearch) CleanupMetrics(_ context.Context, retentionDays int) (int, error) {
	m.cleanupDays = retentionDays
	return 3, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// mockLimiter allows the first max attempts per identity and route.
type mockLimiter struct {
	mu         sync.Mutex
	counts     map[string]int
	identities []string
	err        error
}

func newMockLimiter() *mockLimiter { return &mockLimiter{counts: make(map[string]int)} }

func (m *mockLimiter) Allow(
	_ context.Context, identity, route string, maxAttempts int, window time.Duration,
) (throttle.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return throttle.Decision{}, m.err
	}
	m.identities = append(m.identities, identity)
	k := route + ":" + identity
	m.counts[k]++
	n := m.counts[k]
	if n > maxAttempts {
		return throttle.Decision{Limit: maxAttempts, RetryAfter: window}, nil
	}
	return throttle.Decision{Allowed: true, Limit: maxAttempts, Remaining: maxAttempts - n}, nil
}

// --- Fixtures ---

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func sampleResponse() result.Response {
	env := result.Envelope{ID: "l1", Type: record.Listing, Title: "Logo design", RelevanceScore: 2.5}
	return result.Response{
		QueryText:     "logo",
		TotalCount:    1,
		ResultsByType: map[record.Type][]result.Envelope{record.Listing: {env}},
		CombinedPage:  []result.Envelope{env},
		Pagination:    result.NewPagination(1, 15, 1),
	}
}

func newTestServer(m *mockSearch, opts Options) http.Handler {
	h := &mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}}
	return NewServer(m, h, zap.NewNop()).Routes(opts)
}
