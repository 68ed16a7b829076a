package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
)

// RateLimitError is returned when a provider responds with HTTP 429.
// It carries the server's Retry-After hint so retry delays can honor it
// instead of guessing.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// IsRateLimitError reports whether err is (or wraps) a RateLimitError.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// parseRetryAfter interprets a Retry-After header value. Supports both the
// delta-seconds and HTTP-date forms; returns 0 when the value is absent or
// unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// isRetriable decides whether a failed call is worth repeating. Only rate
// limits and server-side errors qualify; everything else (bad request, bad
// key, bad image) will fail the same way again.
func isRetriable(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := IsRateLimitError(err); ok {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return false
}

// retryDelay honors the server's Retry-After when one was given, otherwise
// falls back to the library's exponential backoff.
func retryDelay(n uint, err error, config *retry.Config) time.Duration {
	if rle, ok := IsRateLimitError(err); ok && rle.RetryAfter > 0 {
		return rle.RetryAfter
	}
	return retry.BackOffDelay(n, err, config)
}

// statusError tags an API failure with its HTTP status so retry logic can
// tell transient server errors from permanent client errors.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string { return e.msg }
