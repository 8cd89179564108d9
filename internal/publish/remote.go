package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kubehealth/kubehealth-agent/internal/config"
	agenterrors "github.com/kubehealth/kubehealth-agent/internal/errors"
	"github.com/kubehealth/kubehealth-agent/internal/observability"
	"github.com/kubehealth/kubehealth-agent/internal/transport"
	"github.com/kubehealth/kubehealth-agent/pkg/model"
)

// RemoteClient uploads snapshots to the remote collector over HTTP with
// streaming zstd compression. It never buffers the full JSON payload in
// memory.
type RemoteClient struct {
	httpClient     *http.Client
	config         *config.Config
	metrics        *observability.Metrics
	errorCollector *agenterrors.Collector
}

// NewRemoteClient creates a RemoteClient with middleware applied.
// Retry is handled at the Send level (not the RoundTripper) because
// the streaming io.Pipe body must be re-created on each attempt.
func NewRemoteClient(cfg *config.Config, metrics *observability.Metrics, errCollector *agenterrors.Collector) *RemoteClient {
	// Use an explicit transport instead of http.DefaultTransport to avoid
	// sharing mutable state with other code in the process.
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	return &RemoteClient{
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport.WithAuth(cfg.PublishToken, base),
		},
		config:         cfg,
		metrics:        metrics,
		errorCollector: errCollector,
	}
}

// Send streams a snapshot to the collector using io.Pipe + zstd.
// It re-creates the io.Pipe on each retry attempt since a pipe can only
// be consumed once.
func (c *RemoteClient) Send(ctx context.Context, snap model.SystemSnapshot) (*model.PublishResponse, error) {
	start := time.Now()

	var result *model.PublishResponse
	var compressedBytes int64
	var lastErr error

	maxAttempts := c.config.MaxRetries + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if c.metrics != nil {
				c.metrics.TransportRetries.Inc()
			}
			transport.SleepWithBackoff(attempt - 1)
		}

		if err := ctx.Err(); err != nil {
			lastErr = fmt.Errorf("publish: context canceled before attempt %d: %w", attempt+1, err)
			break
		}

		resp, bytes, err := c.doSend(ctx, snap)
		compressedBytes = bytes
		if err != nil {
			lastErr = err
			if isNonRetryableError(err) {
				break
			}
			continue
		}

		result = resp
		lastErr = nil
		break
	}

	elapsed := time.Since(start)

	if c.metrics != nil {
		c.metrics.PublishDuration.Observe(elapsed.Seconds())
		if compressedBytes > 0 {
			c.metrics.PublishSizeBytes.WithLabelValues("compressed").Observe(float64(compressedBytes))
		}
		if lastErr != nil {
			c.metrics.PublishTotal.WithLabelValues("remote", "error").Inc()
		} else {
			c.metrics.PublishTotal.WithLabelValues("remote", "success").Inc()
		}
	}

	if lastErr != nil {
		if c.errorCollector != nil {
			c.errorCollector.Report(agenterrors.RunError{
				Code:      agenterrors.ErrPublishFailed,
				Message:   fmt.Sprintf("remote publish failed: %v", lastErr),
				Component: "publish",
				Timestamp: time.Now().UnixMilli(),
				Err:       lastErr,
			})
		}
		return nil, lastErr
	}
	return result, nil
}

// doSend performs a single HTTP POST with streaming compression.
// Each call creates a fresh io.Pipe so it can be called again on retry.
func (c *RemoteClient) doSend(ctx context.Context, snap model.SystemSnapshot) (*model.PublishResponse, int64, error) {
	pr, pw := io.Pipe()

	// CountingWriter wraps the pipe writer to track compressed bytes.
	cw := transport.NewCountingWriter(pw)

	zw, err := zstd.NewWriter(cw, zstd.WithEncoderLevel(zstd.EncoderLevel(c.config.CompressionLevel)))
	if err != nil {
		_ = pw.Close()
		return nil, 0, fmt.Errorf("publish: creating zstd encoder: %w", err)
	}

	// Goroutine: encode JSON → zstd → pipe.
	go func() {
		encodeErr := json.NewEncoder(zw).Encode(snap)
		// Close zstd first to flush, then close the pipe.
		closeErr := zw.Close()
		if encodeErr != nil {
			pw.CloseWithError(fmt.Errorf("publish: JSON encode failed: %w", encodeErr))
		} else if closeErr != nil {
			pw.CloseWithError(fmt.Errorf("publish: zstd close failed: %w", closeErr))
		} else {
			_ = pw.Close()
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.PublishURL, pr)
	if err != nil {
		_ = pr.Close()
		return nil, 0, fmt.Errorf("publish: creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "zstd")
	req.Header.Set("X-Agent-Version", c.config.AgentVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, cw.Count(), fmt.Errorf("publish: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	result, err := ParseResponse(resp)
	if err != nil {
		return nil, cw.Count(), err
	}
	return result, cw.Count(), nil
}

// ParseResponse reads an HTTP response and returns the decoded result
// or a typed error.
func ParseResponse(resp *http.Response) (*model.PublishResponse, error) {
	defer transport.DrainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		var result model.PublishResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("publish: decoding 200 response: %w", err)
		}
		return &result, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("publish: authentication failed (HTTP %d)", resp.StatusCode)

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("publish: rate limited (HTTP 429)")

	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("publish: server error (HTTP %d)", resp.StatusCode)

	default:
		return nil, fmt.Errorf("publish: unexpected status (HTTP %d)", resp.StatusCode)
	}
}

// isNonRetryableError checks if an error should not be retried.
func isNonRetryableError(err error) bool {
	return strings.Contains(err.Error(), "authentication failed")
}
