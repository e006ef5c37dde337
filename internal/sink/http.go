package sink

// http.go is the HTTP client for a remote record-persistence service.
// Batches are POSTed as JSON (optionally gzip-compressed) and the response
// is the per-batch outcome shape the pipeline merges into its report.
// Transient failures (network, 429, 5xx) are retried with exponential
// backoff capped by maxBackoff; Retry-After is honored when present.

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/nexcrm/importer/internal/importer"
)

// HTTPSinkConfig configures an HTTPSink.
type HTTPSinkConfig struct {
	Endpoint   string
	AuthToken  string // Bearer token, empty disables the header
	Gzip       bool
	Timeout    time.Duration // per-request timeout
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// HTTPSink submits batches to a remote record service over HTTP.
type HTTPSink struct {
	client     *http.Client
	endpoint   string
	authToken  string
	gzip       bool
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewHTTPSink creates a sink for the given config, applying defaults for
// unset timing values.
func NewHTTPSink(cfg HTTPSinkConfig) *HTTPSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}

	return &HTTPSink{
		client:     &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		authToken:  cfg.AuthToken,
		gzip:       cfg.Gzip,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		maxBackoff: cfg.MaxBackoff,
	}
}

// SubmitBatch implements importer.Sink with retry and backoff.
func (s *HTTPSink) SubmitBatch(ctx context.Context, records []importer.ValidatedRecord) (importer.BatchResult, error) {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.backoff * time.Duration(1<<uint(attempt-1))
			if backoff > s.maxBackoff {
				backoff = s.maxBackoff
			}
			if httpErr, ok := lastErr.(*HTTPError); ok && httpErr.RetryAfter > 0 {
				backoff = httpErr.RetryAfter
			}

			select {
			case <-ctx.Done():
				return importer.BatchResult{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := s.submitOnce(ctx, records)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return importer.BatchResult{}, err
		}
	}

	return importer.BatchResult{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *HTTPSink) submitOnce(ctx context.Context, records []importer.ValidatedRecord) (importer.BatchResult, error) {
	jsonData, err := json.Marshal(toWire(records))
	if err != nil {
		return importer.BatchResult{}, fmt.Errorf("marshal batch: %w", err)
	}

	var body io.Reader = bytes.NewReader(jsonData)
	contentEncoding := ""
	if s.gzip {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(jsonData); err != nil {
			return importer.BatchResult{}, fmt.Errorf("gzip batch: %w", err)
		}
		if err := gz.Close(); err != nil {
			return importer.BatchResult{}, fmt.Errorf("gzip close: %w", err)
		}
		body = &buf
		contentEncoding = "gzip"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return importer.BatchResult{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}
	req.Header.Set("X-Batch-Rows", strconv.Itoa(len(records)))

	resp, err := s.client.Do(req)
	if err != nil {
		return importer.BatchResult{}, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return importer.BatchResult{}, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var result importer.BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return importer.BatchResult{}, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

// HTTPError is a non-2xx response from the record service.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("record service returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("record service returned %d", e.StatusCode)
}

// isRetryable reports whether a failure is worth another attempt.
// Network errors, 429 and 5xx are retryable; other 4xx are not.
func isRetryable(err error) bool {
	httpErr, ok := err.(*HTTPError)
	if !ok {
		return true
	}
	if httpErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return httpErr.StatusCode >= 500
}

// parseRetryAfter parses a Retry-After header value in seconds or HTTP-date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
