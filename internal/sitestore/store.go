package sitestore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/calenhart/lorecrawl/internal/extract"
	"github.com/calenhart/lorecrawl/internal/types"
)

// Store lays crawled content out on the local filesystem:
//
//	pages/<slug>.md           rendered page text
//	pages/<slug>.json         page metadata
//	pages/<slug>_tables.json  table data (when enabled and present)
//	images/<filename>         downloaded images
//	html/<slug>.html          raw HTML (when enabled)
//	index.md                  table of contents, generated after the run
type Store struct {
	outputDir string
	saveHTML  bool
	logger    *slog.Logger

	mu sync.Mutex // guards image existence checks against concurrent writers
}

// pageMeta is the sidecar metadata written next to each markdown page.
type pageMeta struct {
	URL       string       `json:"url"`
	Title     string       `json:"title"`
	Category  string       `json:"category,omitempty"`
	Links     []types.Link `json:"links"`
	Images    []string     `json:"images"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// New creates the output directory layout.
func New(outputDir string, saveHTML bool, logger *slog.Logger) (*Store, error) {
	dirs := []string{
		outputDir,
		filepath.Join(outputDir, "pages"),
		filepath.Join(outputDir, "images"),
	}
	if saveHTML {
		dirs = append(dirs, filepath.Join(outputDir, "html"))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	return &Store{
		outputDir: outputDir,
		saveHTML:  saveHTML,
		logger:    logger.With("component", "sitestore"),
	}, nil
}

// SavePage persists one page record as markdown + metadata (+ tables, + raw
// HTML when enabled). Returns the slug the files were stored under.
func (s *Store) SavePage(rec *types.PageRecord, rawHTML []byte, saveTables bool) (string, error) {
	slug := PageSlug(rec.URL)

	md := extract.RenderMarkdown(rec)
	mdPath := filepath.Join(s.outputDir, "pages", slug+".md")
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("write page markdown: %w", err)
	}

	meta := pageMeta{
		URL:       rec.URL,
		Title:     rec.Title,
		Category:  rec.Category,
		Links:     rec.Links,
		Images:    rec.ImageRefs,
		FetchedAt: rec.FetchedAt,
	}
	if err := writeJSON(filepath.Join(s.outputDir, "pages", slug+".json"), meta); err != nil {
		return "", err
	}

	if saveTables && len(rec.Tables) > 0 {
		tablesPath := filepath.Join(s.outputDir, "pages", slug+"_tables.json")
		if err := writeJSON(tablesPath, rec.Tables); err != nil {
			return "", err
		}
	}

	if s.saveHTML && len(rawHTML) > 0 {
		htmlPath := filepath.Join(s.outputDir, "html", slug+".html")
		if err := os.WriteFile(htmlPath, rawHTML, 0o644); err != nil {
			return "", fmt.Errorf("write raw html: %w", err)
		}
	}

	s.logger.Debug("page saved", "url", rec.URL, "slug", slug)
	return slug, nil
}

// HasImage reports whether the image for rawURL is already on disk,
// so an existing file is never re-downloaded.
func (s *Store) HasImage(rawURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(filepath.Join(s.outputDir, "images", ImageFilename(rawURL)))
	return err == nil
}

// SaveImage writes image bytes under images/, returning the relative path.
func (s *Store) SaveImage(rawURL string, data []byte) (string, error) {
	name := ImageFilename(rawURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	full := filepath.Join(s.outputDir, "images", name)
	if _, err := os.Stat(full); err == nil {
		return filepath.Join("images", name), nil
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	s.logger.Debug("image saved", "url", rawURL, "file", name)
	return filepath.Join("images", name), nil
}

// PagesDir returns the directory stored pages live in.
func (s *Store) PagesDir() string {
	return filepath.Join(s.outputDir, "pages")
}

var illegalFilename = regexp.MustCompile(`[\\/*?:"<>|\s]+`)

// PageSlug derives the storage slug for a page URL from its unescaped path,
// falling back to a URL hash when the path yields nothing usable.
func PageSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return urlHash(rawURL)
	}
	p, err := url.PathUnescape(u.Path)
	if err != nil {
		p = u.Path
	}
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, path.Ext(p))

	slug := strings.Trim(illegalFilename.ReplaceAllString(p, "_"), "_")
	if slug == "" {
		return urlHash(rawURL)
	}
	if len(slug) > 200 {
		slug = slug[:200]
	}
	return slug
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".svg": true, ".bmp": true,
}

// ImageFilename derives a stable local filename for an image URL.
// Empty, query-bearing or oversized basenames fall back to a URL hash,
// and a recognizable extension is preserved (default .jpg).
func ImageFilename(rawURL string) string {
	ext := strings.ToLower(path.Ext(strippedPath(rawURL)))
	if !imageExtensions[ext] {
		ext = ".jpg"
	}

	name := path.Base(strippedPath(rawURL))
	if name == "" || name == "." || name == "/" || strings.Contains(name, "?") || len(name) > 100 {
		return urlHash(rawURL) + ext
	}
	name = illegalFilename.ReplaceAllString(name, "_")
	if path.Ext(name) == "" {
		name += ext
	}
	return name
}

func strippedPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	p, err := url.PathUnescape(u.Path)
	if err != nil {
		return u.Path
	}
	return p
}

func urlHash(rawURL string) string {
	h := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(h[:8])
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
