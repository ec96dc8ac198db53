// Package httpx wraps outbound HTTP calls to external providers (scraping,
// text generation, image rendering) in a failsafe-go retry policy.
package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// ShouldRetryFunc decides whether an attempt's outcome is retried.
type ShouldRetryFunc func(resp *http.Response, err error) bool

// DefaultShouldRetry retries transport errors, 5xx gateway-style failures and 429.
func DefaultShouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		// The caller gave up; retrying cannot help.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// Config controls the retry behaviour of an Executor.
type Config struct {
	// MaxRetries is the number of retries after the first attempt. Zero disables retries.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Timeout bounds each single attempt. Zero leaves it to the http.Client.
	Timeout     time.Duration
	ShouldRetry ShouldRetryFunc
}

// DefaultConfig returns two retries with a short exponential backoff.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  2,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		ShouldRetry: DefaultShouldRetry,
	}
}

func normalize(cfg Config) Config {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 250 * time.Millisecond
	}
	if cfg.MaxDelay <= cfg.BaseDelay {
		cfg.MaxDelay = 2 * cfg.BaseDelay
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = DefaultShouldRetry
	}
	return cfg
}

// Executor performs HTTP requests under a retry policy. Response bodies are
// buffered so that retried attempts never leak connections.
type Executor struct {
	client   *http.Client
	cfg      Config
	executor failsafe.Executor[*http.Response]
}

// NewExecutor builds an Executor. A nil client uses a client with a 60s timeout.
func NewExecutor(client *http.Client, cfg Config) *Executor {
	cfg = normalize(cfg)
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	retry := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(resp *http.Response, err error) bool {
			return cfg.ShouldRetry(resp, err)
		}).
		ReturnLastFailure().
		Build()

	return &Executor{
		client:   client,
		cfg:      cfg,
		executor: failsafe.With(retry),
	}
}

// Do runs newRequest and the HTTP round trip until it succeeds or the policy
// gives up. newRequest is invoked once per attempt so request bodies can be rebuilt.
// The returned response always has a fully buffered body.
func (e *Executor) Do(ctx context.Context, newRequest func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	resp, err := e.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		attemptCtx := ctx
		if e.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
			defer cancel()
		}

		req, err := newRequest(attemptCtx)
		if err != nil {
			return nil, err
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	})

	// On exhaustion the last attempt's result is returned, so a retryable
	// status comes back as a response for the caller to inspect.
	if err != nil && resp != nil {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ReadBody returns the buffered body of a response produced by Do.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}
