package chi

import (
	"context"
	"net/http"
	"strings"
)

// Caller identifies the authenticated client of a request.
type Caller struct {
	UserID string
	Admin  bool
}

type callerKey struct{}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// APIKeyMiddleware resolves the caller from "Authorization: Bearer <key>" or "X-API-Key".
// Requests without a key proceed anonymously; unknown keys are rejected.
// apiKeys maps a key to the user id it authenticates. Admin keys authenticate as "admin".
func APIKeyMiddleware(apiKeys map[string]string, adminKeys []string) func(http.Handler) http.Handler {
	users := make(map[string]string, len(apiKeys))
	for k, id := range apiKeys {
		if k != "" {
			users[k] = id
		}
	}
	admins := make(map[string]struct{}, len(adminKeys))
	for _, k := range adminKeys {
		if k != "" {
			admins[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := credential(r)
			if problem != "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, problem)
				return
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			var caller Caller
			if _, ok := admins[token]; ok {
				caller = Caller{UserID: "admin", Admin: true}
			} else if id, ok := users[token]; ok {
				caller = Caller{UserID: id}
			} else {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}
			if caller.UserID == "" {
				caller.UserID = "anonymous"
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
		})
	}
}

// RequireAdmin rejects callers that did not authenticate with an admin key.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := CallerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing api key")
			return
		}
		if !c.Admin {
			writeError(w, http.StatusForbidden, CodeForbidden, "admin api key required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// credential extracts the API key. A malformed Authorization header yields a message.
func credential(r *http.Request) (token, problem string) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(auth, bearerPrefix) {
			return "", "authorization header must use Bearer scheme"
		}
		return strings.TrimSpace(auth[len(bearerPrefix):]), ""
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key")), ""
}
