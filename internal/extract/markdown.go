package extract

import (
	"fmt"
	"strings"

	"github.com/calenhart/lorecrawl/internal/types"
)

// RenderMarkdown builds the pages/<slug>.md body for a page record:
// title, source URL, extracted text, and the tables rendered as pipe tables.
func RenderMarkdown(rec *types.PageRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", rec.Title)
	fmt.Fprintf(&b, "URL: %s\n\n", rec.URL)
	b.WriteString(rec.BodyText)
	b.WriteByte('\n')

	if len(rec.Tables) > 0 {
		b.WriteString("\n## Tables\n")
		for i, table := range rec.Tables {
			caption := table.Caption
			if caption == "" {
				caption = fmt.Sprintf("Table %d", i+1)
			}
			fmt.Fprintf(&b, "\n### %s\n\n", caption)
			writeTable(&b, table)
		}
	}

	if len(rec.ImageRefs) > 0 {
		b.WriteString("\n## Images\n\n")
		for _, img := range rec.ImageRefs {
			fmt.Fprintf(&b, "* %s\n", img)
		}
	}

	return b.String()
}

func writeTable(b *strings.Builder, table types.TableData) {
	if len(table.Headers) > 0 {
		b.WriteString("| " + strings.Join(table.Headers, " | ") + " |\n")
		sep := make([]string, len(table.Headers))
		for i := range sep {
			sep[i] = "---"
		}
		b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	}
	for _, row := range table.Rows {
		cells := append([]string(nil), row...)
		// Pad short rows out to the header width.
		for len(cells) < len(table.Headers) {
			cells = append(cells, "")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}
