package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/calenhart/lorecrawl/internal/types"
)

// Page is one stored wiki page loaded back for entity extraction. The parsed
// tree is shared between the CSS (goquery) and XPath (htmlquery) views.
type Page struct {
	Slug     string
	URL      string
	Title    string
	Category string
	Doc      *goquery.Document
	Root     *html.Node
	Tables   []types.TableData
}

// LoadPages reads every stored page under pagesDir. Raw HTML is preferred
// when a crawl saved it; otherwise the markdown rendition is revived into
// a minimal HTML tree so the same field rules apply to both.
func LoadPages(pagesDir string, logger *slog.Logger) ([]*Page, error) {
	entries, err := os.ReadDir(pagesDir)
	if err != nil {
		return nil, fmt.Errorf("read pages dir: %w", err)
	}

	htmlDir := filepath.Join(filepath.Dir(pagesDir), "html")

	var pages []*Page
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, "_tables.json") {
			continue
		}
		slug := strings.TrimSuffix(name, ".json")

		page, err := loadPage(pagesDir, htmlDir, slug)
		if err != nil {
			logger.Warn("skipping unreadable page", "slug", slug, "error", err)
			continue
		}
		pages = append(pages, page)
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Slug < pages[j].Slug })
	logger.Info("pages loaded", "count", len(pages))
	return pages, nil
}

func loadPage(pagesDir, htmlDir, slug string) (*Page, error) {
	metaRaw, err := os.ReadFile(filepath.Join(pagesDir, slug+".json"))
	if err != nil {
		return nil, err
	}
	var meta struct {
		URL      string `json:"url"`
		Title    string `json:"title"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, err
	}

	var markup []byte
	if raw, err := os.ReadFile(filepath.Join(htmlDir, slug+".html")); err == nil {
		markup = raw
	} else {
		md, err := os.ReadFile(filepath.Join(pagesDir, slug+".md"))
		if err != nil {
			return nil, err
		}
		markup = []byte(reviveMarkdown(string(md)))
	}

	root, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, err
	}

	page := &Page{
		Slug:     slug,
		URL:      meta.URL,
		Title:    meta.Title,
		Category: meta.Category,
		Doc:      goquery.NewDocumentFromNode(root),
		Root:     root,
	}

	if raw, err := os.ReadFile(filepath.Join(pagesDir, slug+"_tables.json")); err == nil {
		_ = json.Unmarshal(raw, &page.Tables)
	}
	return page, nil
}

// reviveMarkdown converts the stored markdown rendition into just enough
// HTML for the selector-based field rules: headings, list items grouped
// into lists, the URL line, and plain paragraphs.
func reviveMarkdown(md string) string {
	var b strings.Builder
	b.WriteString("<html><body>")

	inList := false
	closeList := func() {
		if inList {
			b.WriteString("</ul>")
			inList = false
		}
	}

	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimRight(line, " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			closeList()
		case strings.HasPrefix(trimmed, "### "):
			closeList()
			fmt.Fprintf(&b, "<h3>%s</h3>", html.EscapeString(trimmed[4:]))
		case strings.HasPrefix(trimmed, "## "):
			closeList()
			fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(trimmed[3:]))
		case strings.HasPrefix(trimmed, "# "):
			closeList()
			fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(trimmed[2:]))
		case strings.HasPrefix(trimmed, "URL: "):
			closeList()
			fmt.Fprintf(&b, `<div class="url">%s</div>`, html.EscapeString(trimmed[5:]))
		case strings.HasPrefix(trimmed, "* "):
			if !inList {
				b.WriteString("<ul>")
				inList = true
			}
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(trimmed[2:]))
		case strings.HasPrefix(trimmed, "|"):
			// Table rows live in the tables sidecar; the markdown form is
			// presentation only.
			closeList()
		default:
			closeList()
			fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(trimmed))
		}
	}
	closeList()
	b.WriteString("</body></html>")
	return b.String()
}

// GroupByKind buckets pages per entity kind. Pages stored without a category
// fall back to a name scan over slug and title; pages that still cannot be
// classified are left out.
func GroupByKind(pages []*Page) map[types.EntityKind][]*Page {
	out := make(map[types.EntityKind][]*Page)
	for _, p := range pages {
		kind, ok := classify(p)
		if !ok {
			continue
		}
		out[kind] = append(out[kind], p)
	}
	return out
}

func classify(p *Page) (types.EntityKind, bool) {
	if kind, ok := types.ParseKind(p.Category); ok {
		return kind, true
	}
	haystack := strings.ToLower(p.Slug + " " + p.Title)
	for _, kind := range types.AllKinds() {
		names := []string{string(kind), string(kind) + "s"}
		if kind == types.KindEnemy {
			names = append(names, "enemies")
		}
		for _, name := range names {
			if strings.Contains(haystack, name) {
				return kind, true
			}
		}
	}
	return "", false
}
