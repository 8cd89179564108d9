// Package transport provides the HTTP middleware shared by the outbound
// clients: header auth, request logging, retry with backoff, and byte
// counting for compressed uploads.
package transport

import (
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// authTransport sets a fixed Authorization header on every request.
type authTransport struct {
	value string
	next  http.RoundTripper
}

// WithAuth wraps a RoundTripper with bearer-token authorization.
func WithAuth(token string, next http.RoundTripper) http.RoundTripper {
	return &authTransport{value: "Bearer " + token, next: next}
}

// WithAuthHeader wraps a RoundTripper with a verbatim Authorization
// value, for APIs that use a non-bearer scheme.
func WithAuthHeader(value string, next http.RoundTripper) http.RoundTripper {
	return &authTransport{value: value, next: next}
}

func (a *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", a.value)
	return a.next.RoundTrip(req)
}

// loggingTransport logs request method/URL and response status.
type loggingTransport struct {
	logger *slog.Logger
	next   http.RoundTripper
}

// WithLogging wraps a RoundTripper with request/response logging.
func WithLogging(logger *slog.Logger, next http.RoundTripper) http.RoundTripper {
	return &loggingTransport{logger: logger, next: next}
}

func (l *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.next.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		l.logger.Error("HTTP request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return resp, err
	}

	l.logger.Debug("HTTP request completed",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)
	return resp, nil
}

// retryTransport retries on 5xx and 429 errors with exponential backoff.
// It does NOT retry on 401/403 (auth failures).
type retryTransport struct {
	maxRetries int
	next       http.RoundTripper
}

// WithRetry wraps a RoundTripper with retry logic for transient errors.
// Requests must have a rewindable body (or none) to be retried safely;
// the streaming upload path handles retries itself for that reason.
func WithRetry(maxRetries int, next http.RoundTripper) http.RoundTripper {
	return &retryTransport{maxRetries: maxRetries, next: next}
}

func (r *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		resp, err = r.next.RoundTrip(req)
		if err != nil {
			// Network error — retry.
			if attempt < r.maxRetries {
				SleepWithBackoff(attempt)
				continue
			}
			return nil, err
		}

		// Success or client error that shouldn't be retried.
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// 429 Too Many Requests — respect Retry-After when present.
		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryAfterDelay(resp)
			if attempt < r.maxRetries {
				DrainAndClose(resp.Body)
				time.Sleep(delay)
				continue
			}
			return resp, nil
		}

		// 5xx — retry with backoff.
		if attempt < r.maxRetries {
			DrainAndClose(resp.Body)
			SleepWithBackoff(attempt)
			continue
		}
	}

	return resp, err
}

// SleepWithBackoff sleeps for exponential backoff: 1s * 2^attempt.
func SleepWithBackoff(attempt int) {
	d := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	time.Sleep(d)
}

// retryAfterDelay extracts the delay from a 429 response's Retry-After
// header (seconds), falling back to a fixed default.
func retryAfterDelay(resp *http.Response) time.Duration {
	const defaultDelay = 5 * time.Second

	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultDelay
}

// DrainAndClose reads remaining body bytes and closes, preventing
// connection leaks.
func DrainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}
