package volatility

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestHTTPMarketSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("index"); got != "SPY" {
			t.Errorf("index param = %q, want SPY", got)
		}
		if got := r.URL.Query().Get("window_days"); got != "30" {
			t.Errorf("window_days param = %q, want 30", got)
		}
		fmt.Fprint(w, `{"volatility": 1.8}`)
	}))
	defer srv.Close()

	source := NewHTTPMarketSource(srv.URL, time.Second)
	source.policy = fastPolicy()

	value, err := source.Volatility(context.Background(), "SPY", 30)
	if err != nil {
		t.Fatalf("Volatility() error = %v", err)
	}
	if value != 1.8 {
		t.Errorf("value = %v, want 1.8", value)
	}
}

func TestHTTPMarketSourceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"volatility": 2.1}`)
	}))
	defer srv.Close()

	source := NewHTTPMarketSource(srv.URL, time.Second)
	source.policy = fastPolicy()

	value, err := source.Volatility(context.Background(), "SPY", 30)
	if err != nil {
		t.Fatalf("Volatility() error = %v", err)
	}
	if value != 2.1 {
		t.Errorf("value = %v, want 2.1", value)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestHTTPMarketSourceDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	source := NewHTTPMarketSource(srv.URL, time.Second)
	source.policy = fastPolicy()

	if _, err := source.Volatility(context.Background(), "SPY", 30); err == nil {
		t.Fatal("expected an error for status 400")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retries on 4xx)", calls.Load())
	}
}

func TestHTTPMarketSourceRejectsNonPositiveValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"volatility": 0}`)
	}))
	defer srv.Close()

	source := NewHTTPMarketSource(srv.URL, time.Second)
	source.policy = fastPolicy()

	if _, err := source.Volatility(context.Background(), "SPY", 30); err == nil {
		t.Fatal("expected an error for non-positive volatility")
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry(ctx, RetryPolicy{MaxRetries: 3, InitialBackoff: time.Minute, MaxBackoff: time.Minute, BackoffFactor: 2}, func() error {
		return &retryableError{err: fmt.Errorf("transient")}
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
