package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrChatNotFound covers operations against a deleted or unknown chat,
	// including deletions racing an in-flight replay.
	ErrChatNotFound = errors.New("chat not found")
	// ErrUpstreamUnavailable means the backing log or view is unreachable.
	// Each append is atomic per record, so aborting leaves no partial state.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrValidation marks a malformed client payload. No side effect occurred.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized marks a missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrWorkerPanic is reported by the supervisor when a worker crashed.
	ErrWorkerPanic = fmt.Errorf("worker panic")
)

// HTTPStatusFromError maps the taxonomy onto admin API status codes.
func HTTPStatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrChatNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
