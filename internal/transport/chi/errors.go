package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/kailas-cloud/xsearch/internal/domain"
)

// ErrorCode is the machine-readable kind of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeForbidden         ErrorCode = "forbidden"
	CodeRateLimited       ErrorCode = "rate_limited"
	CodeSearchUnavailable ErrorCode = "search_unavailable"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

var errorHandlers = []errorHandler{
	validationHandler,
	throttledHandler,
	sentinelHandler(domain.ErrAllIndexesUnavailable, http.StatusServiceUnavailable, CodeSearchUnavailable),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client only sees the sentinel's message.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// validationHandler reports the offending field and reason.
func validationHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    CodeValidationFailed,
			Message: verr.Reason,
			Field:   verr.Field,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, domain.ErrValidation.Error())
	return true
}

// throttledHandler answers 429 with Retry-After.
func throttledHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrThrottled) {
		return false
	}
	var terr *domain.ThrottledError
	if errors.As(err, &terr) {
		w.Header().Set("Retry-After", strconv.Itoa(max(int(terr.RetryAfter.Seconds()), 1)))
	}
	writeError(w, http.StatusTooManyRequests, CodeRateLimited, domain.ErrThrottled.Error())
	return true
}
