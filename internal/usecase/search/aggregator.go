package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/xsearch/internal/domain"
	"github.com/kailas-cloud/xsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xsearch/internal/domain/search/query"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
	"github.com/kailas-cloud/xsearch/internal/metrics"
)

// DefaultIndexTimeout bounds a single per-type index query.
const DefaultIndexTimeout = 3 * time.Second

// Failure reasons reported in partial failures.
const (
	ReasonError   = "error"
	ReasonTimeout = "timeout"
)

// suggestQuotas is the number of titles pulled from each type, in pull order.
var suggestQuotas = []struct {
	typ   record.Type
	quota int
}{
	{record.Profile, 2},
	{record.Listing, 2},
	{record.Achievement, 1},
}

// Aggregator fans a query out to the per-type indexes and merges the results.
type Aggregator struct {
	indexes   Indexes
	formatter Formatter
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAggregator creates an aggregator. A non-positive timeout uses DefaultIndexTimeout.
func NewAggregator(indexes Indexes, formatter Formatter, timeout time.Duration, logger *zap.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultIndexTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{indexes: indexes, formatter: formatter, timeout: timeout, logger: logger}
}

type typeOutcome struct {
	envelopes []result.Envelope
	failure   *result.IndexFailure
}

// Aggregate runs the query against every requested type concurrently.
// A failing type contributes nothing and is reported in PartialFailures.
func (a *Aggregator) Aggregate(ctx context.Context, q query.Query) (result.Response, error) {
	types := q.Types()

	// Filters are validated before any index is touched.
	exprs := make(map[record.Type]filter.Expression, len(types))
	for _, t := range types {
		b, err := filter.For(t)
		if err != nil {
			return result.Response{}, domain.NewValidationError("types", err.Error())
		}
		expr, err := b.Build(q.FiltersFor(t))
		if err != nil {
			return result.Response{}, domain.NewValidationError("filters."+string(t), err.Error())
		}
		exprs[t] = expr
	}

	var (
		mu       sync.Mutex
		outcomes = make(map[record.Type]typeOutcome, len(types))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range types {
		g.Go(func() error {
			out := a.queryType(gctx, t, q.Text(), exprs[t])
			mu.Lock()
			outcomes[t] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp := result.Response{
		QueryText:     q.Text(),
		ResultsByType: make(map[record.Type][]result.Envelope, len(types)),
	}
	byType := make(map[record.Type][]result.Envelope, len(types))
	for _, t := range types {
		out := outcomes[t]
		if out.failure != nil {
			resp.PartialFailures = append(resp.PartialFailures, *out.failure)
		}
		resp.ResultsByType[t] = out.envelopes
		byType[t] = out.envelopes
		resp.TotalCount += len(out.envelopes)
	}

	if len(resp.PartialFailures) == len(types) {
		return result.Response{}, fmt.Errorf("%w: %d of %d types failed",
			domain.ErrAllIndexesUnavailable, len(types), len(types))
	}

	merged := mergeRanked(types, byType)
	resp.CombinedPage = paginate(merged, q.Offset(), q.PageSize())
	resp.Pagination = result.NewPagination(q.Page(), q.PageSize(), resp.TotalCount)
	return resp, nil
}

func (a *Aggregator) queryType(ctx context.Context, t record.Type, text string, expr filter.Expression) typeOutcome {
	idx, ok := a.indexes[t]
	if !ok {
		return a.fail(t, ReasonError, fmt.Errorf("%w: no index configured for %s", domain.ErrIndexUnavailable, t))
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	hits, err := idx.Query(ctx, text, expr)
	metrics.IndexQueryDuration.WithLabelValues(string(t), "query").Observe(time.Since(start).Seconds())
	if err != nil {
		reason := ReasonError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		return a.fail(t, reason, err)
	}

	envs := make([]result.Envelope, len(hits))
	for i, h := range hits {
		envs[i] = a.formatter.Format(h)
	}
	return typeOutcome{envelopes: envs}
}

func (a *Aggregator) fail(t record.Type, reason string, err error) typeOutcome {
	metrics.IndexFailuresTotal.WithLabelValues(string(t), reason).Inc()
	a.logger.Warn("index query failed",
		zap.String("type", string(t)),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return typeOutcome{
		envelopes: []result.Envelope{},
		failure:   &result.IndexFailure{Type: t, Reason: reason},
	}
}

// Suggest returns up to limit distinct titles matching prefix, pulled from each
// type by quota in type order. Failing types are skipped.
func (a *Aggregator) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	titles := make([][]string, len(suggestQuotas))
	failed := make([]bool, len(suggestQuotas))

	g, gctx := errgroup.WithContext(ctx)
	for i, sq := range suggestQuotas {
		g.Go(func() error {
			idx, ok := a.indexes[sq.typ]
			if !ok {
				failed[i] = true
				return nil
			}
			qctx, cancel := context.WithTimeout(gctx, a.timeout)
			defer cancel()

			start := time.Now()
			hits, err := idx.Suggest(qctx, prefix, sq.quota)
			metrics.IndexQueryDuration.WithLabelValues(string(sq.typ), "suggest").Observe(time.Since(start).Seconds())
			if err != nil {
				failed[i] = true
				metrics.IndexFailuresTotal.WithLabelValues(string(sq.typ), ReasonError).Inc()
				a.logger.Warn("suggest query failed", zap.String("type", string(sq.typ)), zap.Error(err))
				return nil
			}
			for j, h := range hits {
				if j == sq.quota {
					break
				}
				titles[i] = append(titles[i], h.Title())
			}
			return nil
		})
	}
	_ = g.Wait()

	allFailed := true
	for _, f := range failed {
		allFailed = allFailed && f
	}
	if allFailed {
		return nil, fmt.Errorf("%w: suggest", domain.ErrAllIndexesUnavailable)
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, ts := range titles {
		for _, title := range ts {
			if title == "" {
				continue
			}
			if _, dup := seen[title]; dup {
				continue
			}
			seen[title] = struct{}{}
			out = append(out, title)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Counts returns the number of indexed records of each type. A failing index counts as 0.
func (a *Aggregator) Counts(ctx context.Context) map[record.Type]int {
	var (
		mu     sync.Mutex
		counts = make(map[record.Type]int, len(a.indexes))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range record.All() {
		idx, ok := a.indexes[t]
		if !ok {
			continue
		}
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, a.timeout)
			defer cancel()
			n, err := idx.Count(cctx)
			if err != nil {
				a.logger.Warn("index count failed", zap.String("type", string(t)), zap.Error(err))
				n = 0
			}
			mu.Lock()
			counts[t] = n
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return counts
}
