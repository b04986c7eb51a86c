package llm

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"researchdesk/internal/retry"
	"researchdesk/models"
)

// TransientError is a provider failure expected to succeed on
// repetition: timeouts, 5xx, rate limiting. It may carry a
// provider-supplied retry-after hint that overrides the retry
// executor's computed delay.
type TransientError struct {
	Provider models.Provider
	Err      error
	Hint     time.Duration
	HasHint  bool
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RetryAfter implements retry.RetryAfterer.
func (e *TransientError) RetryAfter() (time.Duration, bool) {
	return e.Hint, e.HasHint
}

// classifyHTTP converts a non-2xx provider response into the
// retryable/non-retryable taxonomy. Rate limits and server errors are
// transient; everything else in 4xx territory (validation, auth) can
// never succeed on repetition.
func classifyHTTP(provider models.Provider, resp *http.Response, body []byte) error {
	cause := fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 512))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		te := &TransientError{Provider: provider, Err: cause}
		if after, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			te.Hint = after
			te.HasHint = true
		}
		return te
	case resp.StatusCode >= 500:
		return &TransientError{Provider: provider, Err: cause}
	default:
		return retry.Permanent(cause)
	}
}

// transport-level failures (dial errors, timeouts) are transient.
func transportError(provider models.Provider, err error) error {
	return &TransientError{Provider: provider, Err: err}
}

func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d, true
		}
	}
	return 0, false
}

func truncate(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
