package extractor

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter is assumed when a 429 carries no usable Retry-After.
const DefaultRetryAfter = time.Minute

// RateLimitError is returned by a provider that answered HTTP 429. The
// fallback chain opens that provider's circuit for RetryAfter.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

// NewRateLimitError wraps err. A non-positive wait becomes DefaultRetryAfter.
func NewRateLimitError(provider string, err error, wait time.Duration) *RateLimitError {
	if wait <= 0 {
		wait = DefaultRetryAfter
	}
	return &RateLimitError{Provider: provider, RetryAfter: wait, Err: err}
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// RetryAfter reads the Retry-After header as delta-seconds or an HTTP date.
// It returns 0 when the header is absent, malformed or already in the past.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now).Round(time.Second)
	}
	return 0
}

// Truncate shortens provider output quoted in error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
