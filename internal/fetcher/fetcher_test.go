package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calenhart/lorecrawl/internal/config"
	"github.com/calenhart/lorecrawl/internal/types"
)

func testFetcher(maxRetries int) *Fetcher {
	cfg := config.DefaultConfig()
	cfg.Fetcher.MaxRetries = maxRetries
	cfg.Fetcher.RetryDelay = time.Millisecond
	cfg.Fetcher.RequestTimeout = 5 * time.Second
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, logger)
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("expected User-Agent header")
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	body, err := testFetcher(3).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestFetchTransientThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	body, err := testFetcher(5).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected success after transient errors, got %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("unexpected body: %q", body)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("expected 4 attempts, got %d", got)
	}
}

func TestFetchPermanentNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher(3).Fetch(context.Background(), srv.URL)
	var ferr *types.FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !ferr.Permanent {
		t.Error("404 should be permanent")
	}
	if ferr.Exhausted {
		t.Error("permanent failure must not be marked exhausted")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("404 must not be retried, got %d attempts", got)
	}
}

func TestFetchExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testFetcher(2).Fetch(context.Background(), srv.URL)
	var ferr *types.FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !ferr.Exhausted {
		t.Error("expected exhausted failure")
	}
	if ferr.Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", ferr.Attempts)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("max_retries=2 should mean 3 attempts, got %d", got)
	}
}

func TestFetch429IsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("after limit"))
	}))
	defer srv.Close()

	body, err := testFetcher(3).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("429 should be retried: %v", err)
	}
	if string(body) != "after limit" {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestFetchContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testFetcher(5).Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		header string
		want   time.Duration
	}{
		{"", 5 * time.Second},
		{"7", 7 * time.Second},
		{"500", 120 * time.Second},
		{"garbage", 5 * time.Second},
	}
	for _, tc := range cases {
		if got := parseRetryAfter(tc.header); got != tc.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}

func TestFetchMaxBodySize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Fetcher.MaxRetries = 0
	cfg.Fetcher.MaxBodySize = 1024
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := New(cfg, logger)

	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(body) != 1024 {
		t.Errorf("expected truncation to 1024 bytes, got %d", len(body))
	}
}
