package adapters

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/extract"
	"HealthFetcher/internal/sources"
)

// HTMLTable reads the first table of each html:soup response. Header cells
// are the native names; every body row becomes one record.
func HTMLTable(extractor *extract.Extractor) *sources.CustomAdapter {
	return sources.NewCustom("html_table", func(src *sources.Source, responses []any) ([]domain.Record, error) {
		var out []domain.Record
		for i, resp := range responses {
			doc, ok := resp.(*goquery.Document)
			if !ok {
				return nil, fmt.Errorf("%s: response %d is %T, want an html:soup document", src.ID, i, resp)
			}
			table := doc.Find("table").First()
			if table.Length() == 0 {
				return nil, fmt.Errorf("%s: response %d has no table", src.ID, i)
			}

			rows := table.Find("tr")
			var header []string
			rows.EachWithBreak(func(_ int, tr *goquery.Selection) bool {
				if tr.Find("th").Length() == 0 {
					return true
				}
				tr.Find("th").Each(func(_ int, th *goquery.Selection) {
					header = append(header, cellText(th))
				})
				return false
			})

			var rowErr error
			rows.EachWithBreak(func(_ int, tr *goquery.Selection) bool {
				cells := tr.Find("td")
				if cells.Length() == 0 {
					return true
				}
				if header == nil {
					// header-less table: the first data row names the columns
					cells.Each(func(_ int, td *goquery.Selection) {
						header = append(header, cellText(td))
					})
					return true
				}
				obj := make(map[string]any, len(header))
				cells.Each(func(j int, td *goquery.Selection) {
					if j < len(header) {
						obj[header[j]] = cellText(td)
					}
				})
				res, err := extractor.Extract(src.ID, obj, nil, src.Mapping)
				if err != nil {
					rowErr = err
					return false
				}
				if rec := res.Record(); len(rec) > 0 {
					out = append(out, rec)
				}
				return true
			})
			if rowErr != nil {
				return nil, rowErr
			}
		}
		return out, nil
	})
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
