package popularity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/db"
	"github.com/kailas-cloud/xsearch/internal/domain"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
)

// MinQueryLength is the shortest normalized query that is tracked, in runes.
const MinQueryLength = 2

// DefaultTopLimit is used by Top when limit is not positive.
const DefaultTopLimit = 10

var keyPrefix = domain.KeyPrefix + "popular:"

const textSegment = "text:"

// store is the consumer interface for popularity counters (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Tracker counts normalized queries per UTC day.
type Tracker struct {
	store  store
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a popularity tracker.
func New(s store, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{store: s, now: time.Now, logger: logger}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Normalize trims, lower-cases and collapses inner whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Hash returns the fixed-width hex digest used in counter keys.
func Hash(normalized string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalized))
}

// Track increments today's counter of a query. Queries shorter than
// MinQueryLength after normalization are ignored.
func (t *Tracker) Track(ctx context.Context, text string) error {
	norm := Normalize(text)
	if utf8.RuneCountInString(norm) < MinQueryLength {
		return nil
	}

	now := t.now().UTC()
	day := dayPrefix(now)
	h := Hash(norm)
	ttl := untilEndOfDay(now)

	counterKey := day + h
	if _, err := t.store.IncrBy(ctx, counterKey, 1); err != nil {
		return fmt.Errorf("popularity INCRBY %s: %w", counterKey, err)
	}
	if err := t.store.Expire(ctx, counterKey, ttl, true); err != nil {
		return fmt.Errorf("popularity EXPIRE %s: %w", counterKey, err)
	}

	textKey := day + textSegment + h
	if err := t.store.SetWithTTL(ctx, textKey, []byte(norm), ttl); err != nil {
		return fmt.Errorf("popularity SET %s: %w", textKey, err)
	}
	return nil
}

// Top returns today's most searched queries, count descending then query ascending.
// A store that cannot enumerate keys yields an empty list.
func (t *Tracker) Top(ctx context.Context, limit int) ([]result.Popular, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	day := dayPrefix(t.now().UTC())
	keys, err := t.store.Scan(ctx, day+"*")
	if err != nil {
		t.logger.Warn("Popularity scan failed", zap.Error(err))
		return []result.Popular{}, nil
	}

	out := make([]result.Popular, 0, len(keys))
	for _, k := range keys {
		h := strings.TrimPrefix(k, day)
		if strings.HasPrefix(h, textSegment) {
			continue
		}

		count, err := t.readInt(ctx, k)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			continue
		}

		text, err := t.store.Get(ctx, day+textSegment+h)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("popularity GET text %s: %w", h, err)
		}
		out = append(out, result.Popular{Query: string(text), Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *Tracker) readInt(ctx context.Context, k string) (int64, error) {
	data, err := t.store.Get(ctx, k)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("popularity GET %s: %w", k, err)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("popularity GET %s parse: %w", k, err)
	}
	return n, nil
}

func dayPrefix(now time.Time) string {
	return keyPrefix + now.Format(time.DateOnly) + ":"
}

// untilEndOfDay is never below one second so the key always expires.
func untilEndOfDay(now time.Time) time.Duration {
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return max(end.Sub(now), time.Second)
}
