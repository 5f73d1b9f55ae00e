package crawler

import (
	"testing"
	"time"

	"github.com/calenhart/lorecrawl/internal/types"
)

func task(t *testing.T, rawURL string, depth int) *types.CrawlTask {
	t.Helper()
	ct, err := types.NewCrawlTask(rawURL, depth)
	if err != nil {
		t.Fatalf("NewCrawlTask(%q): %v", rawURL, err)
	}
	return ct
}

func TestFrontierBreadthFirstOrder(t *testing.T) {
	f := NewFrontier()

	// Pushed out of depth order; dispatch must be shallowest first,
	// FIFO within a depth.
	f.Push(task(t, "https://wiki.example/deep1", 2))
	f.Push(task(t, "https://wiki.example/a", 1))
	f.Push(task(t, "https://wiki.example/seed", 0))
	f.Push(task(t, "https://wiki.example/b", 1))
	f.Push(task(t, "https://wiki.example/deep2", 2))

	want := []string{
		"https://wiki.example/seed",
		"https://wiki.example/a",
		"https://wiki.example/b",
		"https://wiki.example/deep1",
		"https://wiki.example/deep2",
	}
	for i, w := range want {
		got := f.TryPop()
		if got == nil {
			t.Fatalf("pop %d: frontier empty", i)
		}
		if got.URLString() != w {
			t.Errorf("pop %d: got %s, want %s", i, got.URLString(), w)
		}
	}
	if f.TryPop() != nil {
		t.Error("expected empty frontier")
	}
}

func TestFrontierTryPopEmpty(t *testing.T) {
	f := NewFrontier()
	if got := f.TryPop(); got != nil {
		t.Errorf("TryPop on empty frontier = %v, want nil", got)
	}
	if f.Len() != 0 {
		t.Errorf("Len = %d, want 0", f.Len())
	}
}

func TestFrontierClose(t *testing.T) {
	f := NewFrontier()
	if f.IsClosed() {
		t.Error("new frontier should be open")
	}
	f.Close()
	if !f.IsClosed() {
		t.Error("frontier should report closed")
	}

	f.Push(task(t, "https://wiki.example/late", 0))
	if f.Len() != 0 {
		t.Error("push to closed frontier should be dropped")
	}

	f.Close() // closing twice is fine
}

func TestFrontierConcurrentPush(t *testing.T) {
	f := NewFrontier()
	ct := task(t, "https://wiki.example/p", 1)
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				f.Push(ct)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for pushers")
		}
	}
	if f.Len() != 200 {
		t.Errorf("Len = %d, want 200", f.Len())
	}
}
