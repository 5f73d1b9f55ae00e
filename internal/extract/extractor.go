package extract

import (
	"bytes"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/calenhart/lorecrawl/internal/types"
)

// contentSelectors is the ladder of main-content containers tried in order.
// Covers MediaWiki skins first, then generic page shells.
var contentSelectors = []string{
	"#mw-content-text",
	"#bodyContent",
	".mw-parser-output",
	"#content",
	".content",
	"article",
	".article",
	"main",
	".main",
}

// chrome is stripped from the content area before text extraction.
const chrome = "script, style, nav, footer, aside, .navbox, .mw-editsection"

// Extractor turns raw wiki HTML into PageRecords.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor.
func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger.With("component", "extractor")}
}

// Extract parses one page into a PageRecord. Links and image sources are
// resolved against baseURL; only links on the wiki's own host are kept.
// Malformed HTML is recovered best-effort, never a hard failure.
func (e *Extractor) Extract(html []byte, baseURL string) (*types.PageRecord, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &types.ParseError{URL: baseURL, Err: err}
	}

	// The underlying parser tolerates unclosed tags and broken nesting;
	// it only errors on reader failure, which bytes.Reader cannot produce.
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &types.ParseError{URL: baseURL, Err: err}
	}

	content := e.contentArea(doc)

	rec := &types.PageRecord{
		URL:       baseURL,
		Title:     extractTitle(doc),
		BodyText:  extractText(content),
		Links:     e.extractLinks(content, base),
		ImageRefs: extractImages(content, base),
		Tables:    ExtractTables(content),
		FetchedAt: time.Now().UTC(),
	}
	return rec, nil
}

// contentArea finds the main content container, falling back to body.
func (e *Extractor) contentArea(doc *goquery.Document) *goquery.Selection {
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			e.logger.Debug("content area found", "selector", sel)
			return s
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// extractTitle prefers the first h1, then the <title> tag with any
// " - SiteName" suffix removed.
func extractTitle(doc *goquery.Document) string {
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		if t := strings.TrimSpace(h1.Text()); t != "" {
			return t
		}
	}
	t := strings.TrimSpace(doc.Find("title").First().Text())
	if i := strings.Index(t, " - "); i > 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// extractText returns the content area's text with chrome stripped and
// blank-line runs collapsed.
func extractText(content *goquery.Selection) string {
	clone := content.Clone()
	clone.Find(chrome).Remove()

	var b strings.Builder
	clone.Find("h1, h2, h3, h4, h5, h6, p, li, dd, dt, blockquote, pre, caption, td, th").
		Each(func(_ int, s *goquery.Selection) {
			// Leaf-ish text only; skip wrappers whose children repeat it.
			if s.Children().Filter("p, li, table").Length() > 0 {
				return
			}
			if t := strings.TrimSpace(s.Text()); t != "" {
				b.WriteString(t)
				b.WriteByte('\n')
			}
		})

	text := b.String()
	if text == "" {
		text = strings.TrimSpace(clone.Text())
	}
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}

// extractLinks collects outbound same-host links, tagging each with the
// category inferred from its path.
func (e *Extractor) extractLinks(content *goquery.Selection, base *url.URL) []types.Link {
	seen := make(map[string]bool)
	var links []types.Link

	content.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" ||
			strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "data:") {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(parsed)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		// Stay within the wiki's host.
		if !strings.EqualFold(resolved.Hostname(), base.Hostname()) {
			return
		}
		resolved.Fragment = ""

		abs := resolved.String()
		if seen[abs] {
			return
		}
		seen[abs] = true

		text := strings.TrimSpace(s.Text())
		if text == "" {
			text = s.AttrOr("title", s.AttrOr("alt", ""))
		}

		links = append(links, types.Link{
			URL:      abs,
			Text:     text,
			Category: InferCategory(resolved),
		})
	})

	return links
}

// InferCategory derives a category tag from a URL's path segments:
// a "Category:Characters" segment yields "character". Plural forms of the
// known entity kinds are normalized to the singular kind name.
func InferCategory(u *url.URL) string {
	path, err := url.PathUnescape(u.Path)
	if err != nil {
		path = u.Path
	}
	for _, seg := range strings.Split(path, "/") {
		name, ok := strings.CutPrefix(seg, "Category:")
		if !ok {
			name, ok = strings.CutPrefix(seg, "category:")
		}
		if !ok {
			continue
		}
		return normalizeCategory(name)
	}
	// Fall back to a path segment that names a known kind
	// (e.g. /characters/grimm).
	for _, seg := range strings.Split(path, "/") {
		if c := normalizeCategory(seg); c != "" {
			if _, known := types.ParseKind(c); known {
				return c
			}
		}
	}
	return ""
}

func normalizeCategory(name string) string {
	c := types.Slugify(name)
	if c == "" {
		return ""
	}
	if _, ok := types.ParseKind(c); ok {
		return c
	}
	singular := strings.TrimSuffix(c, "s")
	if singular == "enemie" {
		singular = "enemy"
	}
	if _, ok := types.ParseKind(singular); ok {
		return singular
	}
	return c
}

// decorative image name fragments skipped during extraction.
var decorativeNames = []string{"icon", "logo", "button", "bg", "background", "sprite"}

// extractImages collects content image URLs, skipping icon-sized and
// decorative images and data URIs.
func extractImages(content *goquery.Selection, base *url.URL) []string {
	seen := make(map[string]bool)
	var images []string

	content.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}

		parsed, err := url.Parse(src)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(parsed)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		if w, okW := dim(s, "width"); okW {
			if h, okH := dim(s, "height"); okH && (w < 50 || h < 50) {
				return
			}
		}
		lower := strings.ToLower(resolved.String())
		for _, frag := range decorativeNames {
			if strings.Contains(lower, frag) {
				return
			}
		}

		abs := resolved.String()
		if !seen[abs] {
			seen[abs] = true
			images = append(images, abs)
		}
	})

	return images
}

func dim(s *goquery.Selection, attr string) (int, bool) {
	v, ok := s.Attr(attr)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil {
		return 0, false
	}
	return n, true
}
