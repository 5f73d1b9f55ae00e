package types

import (
	"fmt"
	"net/url"
	"time"
)

// CrawlTask is a single unit of crawl work: a URL and the depth at which it
// was discovered. A task is consumed exactly once by a worker and discarded.
type CrawlTask struct {
	// URL is the absolute page URL to fetch.
	URL *url.URL

	// Depth is the distance from the seed URL (seed = 0).
	Depth int

	// OriginCategory is the category inferred from the link that discovered
	// this page (e.g. "characters" for a link found under Category:Characters).
	OriginCategory string

	// ParentURL is the page this task was discovered on.
	ParentURL string

	// RetryCount tracks how many times the fetch has been re-attempted.
	RetryCount int

	// CreatedAt is when the task entered the frontier.
	CreatedAt time.Time
}

// NewCrawlTask creates a task for the given raw URL at the given depth.
func NewCrawlTask(rawURL string, depth int) (*CrawlTask, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return &CrawlTask{
		URL:       u,
		Depth:     depth,
		CreatedAt: time.Now(),
	}, nil
}

// URLString returns the string form of the task URL.
func (t *CrawlTask) URLString() string {
	if t.URL == nil {
		return ""
	}
	return t.URL.String()
}

// Host returns the hostname of the task URL.
func (t *CrawlTask) Host() string {
	if t.URL == nil {
		return ""
	}
	return t.URL.Hostname()
}
