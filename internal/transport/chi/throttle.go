package chi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/logger"
	"github.com/kailas-cloud/xsearch/internal/metrics"
	"github.com/kailas-cloud/xsearch/internal/repository/throttle"
)

// Limiter decides whether an attempt may proceed.
type Limiter interface {
	Allow(ctx context.Context, identity, route string, maxAttempts int, window time.Duration) (throttle.Decision, error)
}

// ThrottleMiddleware limits attempts per caller on one route.
// Authenticated callers are keyed by user id, anonymous ones by remote address.
func ThrottleMiddleware(l Limiter, route string, maxAttempts int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), identity(r), route, maxAttempts, window)
			if err != nil {
				logger.FromContext(r.Context()).Warn("throttle check failed", zap.String("route", route), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(d.Remaining, 0)))
			if !d.Allowed {
				metrics.ThrottleRejectionsTotal.WithLabelValues(route).Inc()
				throttledHandler(w, d.Err())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identity(r *http.Request) string {
	if c, ok := CallerFromContext(r.Context()); ok {
		return throttle.UserIdentity(c.UserID)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return throttle.AddrIdentity(host)
}
