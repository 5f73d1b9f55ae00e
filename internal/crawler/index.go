package crawler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// IndexEntry records one visited URL and where its page landed on disk.
type IndexEntry struct {
	URL       string    `json:"url"`
	Path      string    `json:"path"`
	Title     string    `json:"title,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CrawlIndex is the append-only ledger of visited URLs, used both for dedup
// across runs and for resuming an interrupted crawl. Entries are appended
// to crawl_index.jsonl as they happen, one JSON object per line.
type CrawlIndex struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	enc     *json.Encoder
	byURL   map[string]IndexEntry
	entries []IndexEntry
}

// OpenIndex loads any existing ledger under dir and opens it for appending.
func OpenIndex(dir string) (*CrawlIndex, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	idx := &CrawlIndex{
		path:  filepath.Join(dir, "crawl_index.jsonl"),
		byURL: make(map[string]IndexEntry),
	}

	if f, err := os.Open(idx.path); err == nil {
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var e IndexEntry
			if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
				continue // tolerate a torn final line from an interrupted run
			}
			idx.record(e)
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open index: %w", err)
	}

	f, err := os.OpenFile(idx.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("append index: %w", err)
	}
	idx.file = f
	idx.enc = json.NewEncoder(f)
	return idx, nil
}

func (idx *CrawlIndex) record(e IndexEntry) {
	key := NormalizeURL(e.URL)
	if _, ok := idx.byURL[key]; ok {
		return
	}
	idx.byURL[key] = e
	idx.entries = append(idx.entries, e)
}

// Has reports whether the URL was fetched in this or a previous run.
func (idx *CrawlIndex) Has(rawURL string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.byURL[NormalizeURL(rawURL)]
	return ok
}

// Add appends an entry to the ledger and persists it immediately.
func (idx *CrawlIndex) Add(e IndexEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.byURL[NormalizeURL(e.URL)]; ok {
		return nil
	}
	idx.record(e)
	if err := idx.enc.Encode(e); err != nil {
		return fmt.Errorf("append index entry: %w", err)
	}
	return nil
}

// Entries returns a copy of all ledger entries in append order.
func (idx *CrawlIndex) Entries() []IndexEntry {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return append([]IndexEntry(nil), idx.entries...)
}

// Len returns the number of indexed URLs.
func (idx *CrawlIndex) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.byURL)
}

// Close flushes and closes the ledger file.
func (idx *CrawlIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.file == nil {
		return nil
	}
	err := idx.file.Close()
	idx.file = nil
	return err
}
