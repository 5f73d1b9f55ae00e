package crawler

import (
	"sync"
	"testing"
)

func TestNormalizeURLIdempotent(t *testing.T) {
	urls := []string{
		"https://wiki.example/Page",
		"HTTP://Wiki.Example:80/a/b/",
		"https://wiki.example/a?b=1&c=2#frag",
		"https://wiki.example",
	}
	for _, u := range urls {
		once := NormalizeURL(u)
		twice := NormalizeURL(once)
		if once != twice {
			t.Errorf("normalization not idempotent for %q: %q != %q", u, once, twice)
		}
	}
}

func TestNormalizeURLQueryOrder(t *testing.T) {
	a := NormalizeURL("http://x.com/a?b=1&c=2")
	b := NormalizeURL("http://x.com/a?c=2&b=1")
	if a != b {
		t.Errorf("query order should not matter: %q != %q", a, b)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"HTTP://Wiki.Example/Page", "http://wiki.example/Page"},
		{"http://wiki.example:80/p", "http://wiki.example/p"},
		{"https://wiki.example:443/p", "https://wiki.example/p"},
		{"https://wiki.example/p#section", "https://wiki.example/p"},
		{"https://wiki.example/p/", "https://wiki.example/p"},
		{"https://wiki.example", "https://wiki.example/"},
	}
	for _, tc := range cases {
		if got := NormalizeURL(tc.in); got != tc.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDeduplicatorMarkSeen(t *testing.T) {
	d := NewDeduplicator(16)

	if !d.MarkSeen("https://wiki.example/a?b=1&c=2") {
		t.Error("first MarkSeen should return true")
	}
	if d.MarkSeen("https://wiki.example/a?c=2&b=1") {
		t.Error("equivalent URL should already be seen")
	}
	if !d.IsSeen("https://wiki.example/a?b=1&c=2#frag") {
		t.Error("fragment variant should be seen")
	}
	if d.Count() != 1 {
		t.Errorf("Count = %d, want 1", d.Count())
	}
}

func TestDeduplicatorConcurrent(t *testing.T) {
	d := NewDeduplicator(16)
	var wg sync.WaitGroup
	wins := make(chan bool, 32)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- d.MarkSeen("https://wiki.example/contested")
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for win := range wins {
		if win {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("exactly one goroutine should win MarkSeen, got %d", winners)
	}
}
