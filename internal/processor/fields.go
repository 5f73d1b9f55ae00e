package processor

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Shared field rules. The stored pages come in two textures: revived
// markdown (headings and flat lists) and raw wiki HTML (classed infoboxes),
// so most helpers try a CSS rule first and fall back to a structural scan.

// pageName derives the entity's display name, h1 first, then the stored
// title, then the slug.
func pageName(p *Page) string {
	if h1 := strings.TrimSpace(p.Doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	if p.Title != "" {
		return p.Title
	}
	return strings.TrimSpace(strings.ReplaceAll(p.Slug, "_", " "))
}

// description returns the first classed description block, or the first
// non-empty paragraph outside a list.
func description(p *Page) string {
	for _, sel := range []string{".description", ".intro", ".summary"} {
		if text := strings.TrimSpace(p.Doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	var found string
	p.Doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(text, "URL:") {
			return true
		}
		found = text
		return false
	})
	return found
}

// classText returns the text of the first element matching any selector.
func classText(p *Page, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(p.Doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// classItems returns the list item texts under the first list matching any
// selector.
func classItems(p *Page, selectors ...string) []string {
	for _, sel := range selectors {
		list := p.Doc.Find(sel).First()
		if list.Length() == 0 {
			continue
		}
		var items []string
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			if text := strings.TrimSpace(li.Text()); text != "" {
				items = append(items, text)
			}
		})
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

// sectionItems collects list items under any h2/h3 heading whose text
// contains one of the keywords, stopping at the next heading.
func sectionItems(p *Page, keywords ...string) []string {
	var items []string
	for _, heading := range htmlquery.Find(p.Root, "//h2|//h3") {
		text := strings.ToLower(htmlquery.InnerText(heading))
		if !containsAny(text, keywords) {
			continue
		}
		for sib := heading.NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type != html.ElementNode {
				continue
			}
			if sib.Data == "h2" || sib.Data == "h3" {
				break
			}
			if sib.Data == "ul" || sib.Data == "ol" {
				for _, li := range htmlquery.Find(sib, "./li") {
					if text := strings.TrimSpace(htmlquery.InnerText(li)); text != "" {
						items = appendUnique(items, text)
					}
				}
			}
		}
	}
	return items
}

// inlineField scans list items for a "Key: Value" line whose key contains
// one of the keywords and returns the value.
func inlineField(p *Page, keywords ...string) string {
	var found string
	p.Doc.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		key, value, ok := splitInline(li.Text())
		if ok && containsAny(strings.ToLower(key), keywords) {
			found = value
			return false
		}
		return true
	})
	return found
}

// inlineItems is inlineField for comma-separated list values.
func inlineItems(p *Page, keywords ...string) []string {
	var items []string
	p.Doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		key, value, ok := splitInline(li.Text())
		if !ok || !containsAny(strings.ToLower(key), keywords) {
			return
		}
		for _, part := range splitList(value) {
			items = appendUnique(items, part)
		}
	})
	return items
}

// kvTable reads two-column rows from the first table carrying one of the
// class names, coercing numeric values.
func kvTable(p *Page, classes ...string) map[string]any {
	for _, class := range classes {
		rows := htmlquery.Find(p.Root,
			"//table[contains(@class,'"+class+"')]//tr")
		if len(rows) == 0 {
			continue
		}
		out := make(map[string]any)
		for _, row := range rows {
			cells := htmlquery.Find(row, "./th|./td")
			if len(cells) < 2 {
				continue
			}
			key := strings.TrimSpace(htmlquery.InnerText(cells[0]))
			value := strings.TrimSpace(htmlquery.InnerText(cells[1]))
			if key != "" && value != "" {
				out[key] = coerceNumber(value)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// tableKV reads the same two-column shape out of an extracted TableData
// sidecar whose caption or first header contains a keyword.
func tableKV(p *Page, keywords ...string) map[string]any {
	for _, table := range p.Tables {
		label := strings.ToLower(table.Caption)
		if len(table.Headers) > 0 {
			label += " " + strings.ToLower(table.Headers[0])
		}
		if !containsAny(label, keywords) {
			continue
		}
		out := make(map[string]any)
		for _, row := range table.Rows {
			if len(row) < 2 || row[0] == "" || row[1] == "" {
				continue
			}
			out[row[0]] = coerceNumber(row[1])
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// coerceNumber turns a numeric-looking string into an int or float,
// leaving everything else as the original string.
func coerceNumber(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func splitInline(text string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(text, ":")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	return key, value, key != "" && value != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func appendUnique(items []string, item string) []string {
	for _, existing := range items {
		if existing == item {
			return items
		}
	}
	return append(items, item)
}
