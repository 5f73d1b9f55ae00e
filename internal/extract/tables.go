package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/calenhart/lorecrawl/internal/types"
)

// ExtractTables flattens every table in the selection into TableData.
// Headers come from thead cells, or from a leading all-<th> row. A table
// whose only row is its header yields nothing: headers alone do not count
// as a table.
func ExtractTables(content *goquery.Selection) []types.TableData {
	var tables []types.TableData

	content.Find("table").Each(func(_ int, table *goquery.Selection) {
		td := types.TableData{
			Caption: strings.TrimSpace(table.Find("caption").First().Text()),
		}

		table.Find("thead th").Each(func(_ int, th *goquery.Selection) {
			td.Headers = append(td.Headers, strings.TrimSpace(th.Text()))
		})

		headerFromFirstRow := false
		rows := table.Find("tr")
		if len(td.Headers) == 0 {
			if first := rows.First(); first.Length() > 0 {
				ths := first.Find("th")
				if ths.Length() > 0 && first.Find("td").Length() == 0 {
					ths.Each(func(_ int, th *goquery.Selection) {
						td.Headers = append(td.Headers, strings.TrimSpace(th.Text()))
					})
					headerFromFirstRow = true
				}
			}
		}

		rows.Each(func(i int, tr *goquery.Selection) {
			if tr.ParentsFiltered("thead").Length() > 0 {
				return
			}
			if headerFromFirstRow && i == 0 {
				return
			}
			var cells []string
			tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				td.Rows = append(td.Rows, cells)
			}
		})

		if len(td.Rows) > 0 {
			tables = append(tables, td)
		}
	})

	return tables
}
