package llm

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/bookmind/internal/errors"
	"github.com/lepinkainen/bookmind/internal/ratelimit"
)

const defaultMaxAttempts = 2

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// transport holds the HTTP plumbing shared by the clients.
type transport struct {
	httpClient    HTTPDoer
	rateLimiter   *ratelimit.Limiter
	retryAttempts int
	baseURL       string
	system        string
}

// Option is a functional option for configuring a client.
type Option func(*transport)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(t *transport) {
		if c != nil {
			t.httpClient = c
		}
	}
}

// WithHTTPTimeout replaces the HTTP client with one using timeout.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(t *transport) {
		if timeout > 0 {
			t.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(base string) Option {
	return func(t *transport) {
		if base != "" {
			t.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithRetryAttempts sets the number of attempts for retryable failures.
func WithRetryAttempts(attempts int) Option {
	return func(t *transport) {
		if attempts > 0 {
			t.retryAttempts = attempts
		}
	}
}

// WithRateLimiter sets a rate limiter applied before each request.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(t *transport) {
		if limiter != nil {
			t.rateLimiter = limiter
		}
	}
}

// WithSystemPrompt sets the default system instruction sent with Complete.
func WithSystemPrompt(system string) Option {
	return func(t *transport) {
		t.system = system
	}
}

func newTransport(baseURL string, opts []Option) transport {
	t := transport{
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		retryAttempts: defaultMaxAttempts,
		baseURL:       baseURL,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func (t *transport) postJSON(ctx context.Context, endpoint string, headers map[string]string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= t.retryAttempts; attempt++ {
		if t.rateLimiter != nil {
			if err := t.rateLimiter.Wait(ctx); err != nil {
				return err
			}
		}
		lastErr = t.doJSONRequest(ctx, endpoint, headers, body, target)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) || attempt == t.retryAttempts {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(attempt)):
		}
	}
	return lastErr
}

func (t *transport) doJSONRequest(ctx context.Context, endpoint string, headers map[string]string, body []byte, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return errors.NewRateLimitErrorWithRetry("rate limited by "+endpoint, time.Duration(secs)*time.Second)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errors.NewMalformedResponseError("decoding response: " + err.Error())
	}
	return nil
}

func isRetryable(err error) bool {
	if errors.IsRateLimitError(err) {
		return true
	}
	var urlErr *url.Error
	if stdErrors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return false
		}
		// Network errors (connection resets etc.)
		if strings.Contains(urlErr.Error(), "connection") {
			return true
		}
	}
	return false
}

func backoffDelay(attempt int) time.Duration {
	// exponential backoff capped at 5 seconds
	delay := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
	if delay > 5*time.Second {
		return 5 * time.Second
	}
	return delay
}
