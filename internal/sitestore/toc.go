package sitestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TOCEntry is one line of the generated table of contents.
type TOCEntry struct {
	Title string
	Slug  string
	URL   string
}

// WriteTOC generates index.md, a human-readable table of contents over the
// stored pages, sorted by title.
func (s *Store) WriteTOC(entries []TOCEntry) error {
	sorted := append([]TOCEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Title != sorted[j].Title {
			return sorted[i].Title < sorted[j].Title
		}
		return sorted[i].Slug < sorted[j].Slug
	})

	var b strings.Builder
	b.WriteString("# Index\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "%d pages\n\n", len(sorted))
	for _, e := range sorted {
		title := e.Title
		if title == "" {
			title = e.Slug
		}
		fmt.Fprintf(&b, "* [%s](pages/%s.md) <%s>\n", title, e.Slug, e.URL)
	}

	path := filepath.Join(s.outputDir, "index.md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write index.md: %w", err)
	}
	s.logger.Info("table of contents written", "path", path, "pages", len(sorted))
	return nil
}
