package volatility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RetryPolicy defines how market-data fetches are retried.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
	}
}

// retryableError marks a failure worth retrying (5xx, rate limit, transport).
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// HTTPMarketSource fetches realized volatility from a market-data service.
// The endpoint is expected to answer GET {base}?index=SPY&window_days=30 with
// {"volatility": 1.23}.
type HTTPMarketSource struct {
	baseURL string
	client  *http.Client
	policy  RetryPolicy
}

// NewHTTPMarketSource creates a source for the given endpoint.
func NewHTTPMarketSource(baseURL string, timeout time.Duration) *HTTPMarketSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPMarketSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		policy:  DefaultRetryPolicy(),
	}
}

// Volatility implements MarketDataSource.
func (s *HTTPMarketSource) Volatility(ctx context.Context, index string, windowDays int) (float64, error) {
	var value float64

	err := retry(ctx, s.policy, func() error {
		v, err := s.fetch(ctx, index, windowDays)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (s *HTTPMarketSource) fetch(ctx context.Context, index string, windowDays int) (float64, error) {
	params := url.Values{}
	params.Set("index", index)
	params.Set("window_days", strconv.Itoa(windowDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build market data request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, &retryableError{err: fmt.Errorf("market data request: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return 0, &retryableError{err: fmt.Errorf("market data status %d", resp.StatusCode)}
	default:
		return 0, fmt.Errorf("market data status %d", resp.StatusCode)
	}

	var payload struct {
		Volatility float64 `json:"volatility"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode market data response: %w", err)
	}

	if payload.Volatility <= 0 {
		return 0, fmt.Errorf("market data returned non-positive volatility %v", payload.Volatility)
	}

	return payload.Volatility, nil
}

// retry runs fn with exponential backoff, honoring context cancellation.
// Non-retryable errors abort immediately.
func retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var transient *retryableError
		if !errors.As(err, &transient) {
			return err
		}

		if attempt == policy.MaxRetries {
			break
		}

		backoff := float64(policy.InitialBackoff) * math.Pow(policy.BackoffFactor, float64(attempt))
		if backoff > float64(policy.MaxBackoff) {
			backoff = float64(policy.MaxBackoff)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(time.Duration(backoff)):
		}
	}

	return fmt.Errorf("max retries exceeded (%d): %w", policy.MaxRetries, lastErr)
}
