package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrInvalidURL   = errors.New("invalid URL")
	ErrMaxDepth     = errors.New("max depth exceeded")
	ErrDuplicate    = errors.New("duplicate URL")
	ErrOffsite      = errors.New("URL outside wiki host")
	ErrCrawlStopped = errors.New("crawl has been stopped")
)

// FetchError wraps errors that occur while downloading a resource.
// Exactly one of Permanent and Exhausted is set on a terminal failure:
// Permanent for non-retryable responses (4xx other than 429), Exhausted when
// the retry budget ran out on a transient failure.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Permanent  bool
	Exhausted  bool
	Attempts   int
	RetryAfter time.Duration // from a Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	kind := "transient"
	switch {
	case e.Permanent:
		kind = "permanent"
	case e.Exhausted:
		kind = fmt.Sprintf("exhausted after %d attempts", e.Attempts)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError marks a malformed HTML segment. Parsing recovers locally and
// keeps the partial record; the error is counted, not propagated.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError marks a page that could not yield the required entity fields.
// The page is skipped and counted; the batch continues.
type SchemaError struct {
	Path    string
	Kind    EntityKind
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s page %s missing required fields: %s",
		e.Kind, e.Path, strings.Join(e.Missing, ", "))
}

// StorageError wraps a persistence failure for one record or batch.
type StorageError struct {
	Backend    string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s, collection %q): %v", e.Backend, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
