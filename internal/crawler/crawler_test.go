package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/calenhart/lorecrawl/internal/config"
)

// wikiServer serves a tiny four-page wiki: Start links to A and B,
// A links to C. It records which paths were requested.
func wikiServer(t *testing.T) (*httptest.Server, func() map[string]int) {
	t.Helper()

	pages := map[string]string{
		"/Start": `<html><head><title>Start</title></head><body>
			<h1>Start</h1><p>The hub page.</p>
			<a href="/A">Page A</a> <a href="/B">Page B</a></body></html>`,
		"/A": `<html><head><title>A</title></head><body>
			<h1>A</h1><p>First page.</p><a href="/C">Page C</a></body></html>`,
		"/B": `<html><head><title>B</title></head><body>
			<h1>B</h1><p>Second page.</p></body></html>`,
		"/C": `<html><head><title>C</title></head><body>
			<h1>C</h1><p>Too deep.</p></body></html>`,
	}

	var mu sync.Mutex
	hits := make(map[string]int)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()

		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page)
	}))

	snapshot := func() map[string]int {
		mu.Lock()
		defer mu.Unlock()
		out := make(map[string]int, len(hits))
		for k, v := range hits {
			out[k] = v
		}
		return out
	}
	return srv, snapshot
}

func testConfig(t *testing.T, seedURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Wiki.URL = seedURL
	cfg.Wiki.OutputDir = t.TempDir()
	cfg.Wiki.MaxDepth = 1
	cfg.Wiki.Threads = 2
	cfg.Wiki.Delay = 0
	cfg.Wiki.DownloadImages = false
	cfg.Fetcher.MaxRetries = 0
	cfg.Fetcher.RetryDelay = time.Millisecond
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCrawlDepthLimit(t *testing.T) {
	srv, hits := wikiServer(t)
	defer srv.Close()

	cfg := testConfig(t, srv.URL+"/Start")
	c, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Succeeded != 3 {
		t.Errorf("Succeeded = %d, want 3 (Start, A, B)", summary.Succeeded)
	}
	got := hits()
	if got["/C"] != 0 {
		t.Errorf("page C is at depth 2 and must never be fetched, got %d hits", got["/C"])
	}
	for _, path := range []string{"/Start", "/A", "/B"} {
		if got[path] != 1 {
			t.Errorf("page %s fetched %d times, want 1", path, got[path])
		}
	}

	// Crawl output landed on disk.
	for _, slug := range []string{"Start", "A", "B"} {
		md := filepath.Join(cfg.Wiki.OutputDir, "pages", slug+".md")
		if _, err := os.Stat(md); err != nil {
			t.Errorf("missing page file %s: %v", md, err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Wiki.OutputDir, "index.md")); err != nil {
		t.Errorf("missing table of contents: %v", err)
	}
}

func TestCrawlDepthZeroFetchesOnlySeed(t *testing.T) {
	srv, hits := wikiServer(t)
	defer srv.Close()

	cfg := testConfig(t, srv.URL+"/Start")
	cfg.Wiki.MaxDepth = 0
	c, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", summary.Succeeded)
	}
	got := hits()
	for _, path := range []string{"/A", "/B", "/C"} {
		if got[path] != 0 {
			t.Errorf("page %s fetched at max_depth=0", path)
		}
	}
}

func TestCrawlResumeSkipsIndexedPages(t *testing.T) {
	srv, hits := wikiServer(t)
	defer srv.Close()

	cfg := testConfig(t, srv.URL+"/Start")
	c, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before := hits()

	// Second run over the same output dir must not refetch anything.
	c2, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("New (resume): %v", err)
	}
	summary, err := c2.Run(context.Background())
	if err != nil {
		t.Fatalf("resume run: %v", err)
	}

	if summary.Succeeded != 0 {
		t.Errorf("resume Succeeded = %d, want 0", summary.Succeeded)
	}
	if summary.Skipped != 3 {
		t.Errorf("resume Skipped = %d, want 3", summary.Skipped)
	}
	after := hits()
	for path, n := range after {
		if n != before[path] {
			t.Errorf("page %s refetched on resume (%d -> %d)", path, before[path], n)
		}
	}
}

func TestCrawlSeedUnreachableIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL+"/Start")
	c, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := c.Run(context.Background())
	if err == nil {
		t.Fatal("unreachable seed must fail the run")
	}
	if summary.Succeeded != 0 {
		t.Errorf("Succeeded = %d, want 0", summary.Succeeded)
	}
}

func TestSummaryString(t *testing.T) {
	s := &Summary{Succeeded: 3, Skipped: 1, Errored: 2,
		ErrorKinds: map[string]int{"fetch_permanent": 2}}
	got := s.String()
	want := "3 succeeded, 1 skipped, 2 errored (fetch_permanent: 2)"
	if got != want {
		t.Errorf("Summary.String() = %q, want %q", got, want)
	}
}
