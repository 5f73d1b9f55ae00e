package types

import "time"

// Link is an outbound same-host link found on a page.
type Link struct {
	// URL is the resolved absolute link target.
	URL string `json:"url"`

	// Text is the anchor text (or title/alt fallback).
	Text string `json:"text"`

	// Category is the wiki category inferred from the link path
	// (e.g. "characters"), empty when none could be inferred.
	Category string `json:"category,omitempty"`
}

// TableData is one HTML table flattened into headers and rows.
// Tables with zero data rows are never emitted.
type TableData struct {
	Caption string     `json:"caption,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// PageRecord is the structured result of extracting one fetched page.
// It is immutable once written to storage.
type PageRecord struct {
	URL   string `json:"url"`
	Title string `json:"title"`

	// Category tags the entity kind this page was crawled under, when one
	// could be inferred from its own path or the link that discovered it.
	Category  string      `json:"category,omitempty"`
	BodyText  string      `json:"content"`
	Links     []Link      `json:"links"`
	ImageRefs []string    `json:"images"`
	Tables    []TableData `json:"tables,omitempty"`
	FetchedAt time.Time   `json:"fetched_at"`
}
