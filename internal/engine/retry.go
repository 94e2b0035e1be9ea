package engine

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

// RetryConfig controls retry behavior.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
}

// DefaultRetryConfig is suitable for most HTTP calls.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
}

// RetryDo retries fn with doubling backoff. Only retryable errors are
// retried; non-retryable errors and context cancellation return immediately.
// A server-provided Retry-After hint overrides the computed wait.
func RetryDo[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	wait := rc.InitialWait
	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return zero, err
		}
		if attempt == rc.MaxRetries {
			break
		}

		sleep := wait
		if hint := retryAfterHint(err); hint > sleep {
			sleep = hint
		}
		if sleep > rc.MaxWait {
			sleep = rc.MaxWait
		}
		slog.Debug("retrying", slog.Int("attempt", attempt+1), slog.Duration("wait", sleep), slog.Any("error", err))
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		wait *= 2
	}
	return zero, lastErr
}

// RetryHTTP runs an HTTP request function with retry logic. fn builds and
// sends the request; RetryHTTP turns retryable statuses into retries and
// honors the Retry-After header when present.
func RetryHTTP(ctx context.Context, rc RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return RetryDo(ctx, rc, func() (*http.Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if isRetryableStatus(resp.StatusCode) {
			after := parseRetryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			return nil, &httpStatusError{StatusCode: resp.StatusCode, RetryAfter: after}
		}
		return resp, nil
	})
}

// httpStatusError wraps a retryable HTTP status code, carrying the server's
// Retry-After hint when one was sent.
type httpStatusError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return http.StatusText(e.StatusCode)
}

// parseRetryAfter handles the delay-seconds form only; the HTTP-date form is
// rare enough from the services we call to ignore.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func retryAfterHint(err error) time.Duration {
	var httpErr *httpStatusError
	if errors.As(err, &httpErr) {
		return httpErr.RetryAfter
	}
	return 0
}

// isRetryable returns true for transient errors worth retrying.
func isRetryable(err error) bool {
	var httpErr *httpStatusError
	if errors.As(err, &httpErr) {
		return true // already filtered by isRetryableStatus
	}

	// Connection errors (dial failures, connection refused, etc.)
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// Timeout errors (net.Error includes OpError, so check after OpError)
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// isRetryableStatus returns true for HTTP status codes worth retrying.
func isRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
