package throttle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/db"
	"github.com/kailas-cloud/xsearch/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "throttle:"

// store is the consumer interface for window counters (ISP).
type store interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Decision is the outcome of one attempt.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// Limiter counts attempts per identity and route in fixed windows.
// Store failures allow the attempt.
type Limiter struct {
	store  store
	logger *zap.Logger
}

// New creates a limiter.
func New(s store, logger *zap.Logger) *Limiter {
	return &Limiter{store: s, logger: logger}
}

// UserIdentity keys an authenticated caller.
func UserIdentity(id string) string { return "user:" + id }

// AddrIdentity keys an anonymous caller by network origin.
func AddrIdentity(addr string) string { return "ip:" + addr }

// Allow counts one attempt. The window starts at the first attempt and the
// attempt that exceeds maxAttempts is denied with the time left in the window.
func (l *Limiter) Allow(
	ctx context.Context, identity, route string, maxAttempts int, window time.Duration,
) (Decision, error) {
	if maxAttempts <= 0 || window <= 0 {
		return Decision{}, errors.New("max attempts and window must be positive")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		identity = "anonymous"
	}
	k := keyPrefix + route + ":" + identity

	count, err := l.store.IncrBy(ctx, k, 1)
	if err != nil {
		l.logger.Warn("Throttle counter unavailable, allowing", zap.String("key", k), zap.Error(err))
		return Decision{Allowed: true, Limit: maxAttempts, Remaining: maxAttempts - 1}, nil
	}
	if count == 1 {
		if err := l.store.Expire(ctx, k, window, true); err != nil {
			l.logger.Warn("Failed to start throttle window", zap.String("key", k), zap.Error(err))
		}
	}

	if count <= int64(maxAttempts) {
		return Decision{Allowed: true, Limit: maxAttempts, Remaining: maxAttempts - int(count)}, nil
	}

	return Decision{Allowed: false, Limit: maxAttempts, RetryAfter: l.retryAfter(ctx, k, window)}, nil
}

// retryAfter is the remaining window, at least one second.
func (l *Limiter) retryAfter(ctx context.Context, k string, window time.Duration) time.Duration {
	ttl, err := l.store.TTL(ctx, k)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return time.Second
	case err != nil:
		l.logger.Warn("Failed to read throttle window", zap.String("key", k), zap.Error(err))
		return window
	case ttl < 0:
		// No expiry on the counter: restart the window.
		if err := l.store.Expire(ctx, k, window, false); err != nil {
			l.logger.Warn("Failed to restart throttle window", zap.String("key", k), zap.Error(err))
		}
		return window
	}
	return max(ttl, time.Second)
}

// Err converts a denial into domain.ThrottledError.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("throttle: %w", &domain.ThrottledError{RetryAfter: time.Duration(d.RetryAfterSeconds()) * time.Second})
}
