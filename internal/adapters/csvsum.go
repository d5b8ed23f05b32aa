package adapters

import (
	"fmt"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/sources"
)

// CSVSum adds up the mapped columns of every CSV row of every response into
// a single record. Blank cells count as zero and thousands separators are
// accepted.
func CSVSum() *sources.CustomAdapter {
	return sources.NewCustom("csv_sum", func(src *sources.Source, responses []any) ([]domain.Record, error) {
		sums := domain.Record{}
		for i, resp := range responses {
			rows, ok := resp.([]any)
			if !ok {
				return nil, fmt.Errorf("%s: response %d is %T, want CSV rows", src.ID, i, resp)
			}
			for n, r := range rows {
				row, ok := r.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%s: row %d has no header", src.ID, n)
				}
				for col, v := range row {
					f, ok := src.Mapping.Lookup(col)
					if !ok {
						continue
					}
					if s, isText := v.(string); isText && s == "" {
						continue
					}
					x, ok := domain.Number(v)
					if !ok {
						return nil, fmt.Errorf("%s: row %d column %q: %v is not a number", src.ID, n, col, v)
					}
					total, _ := sums[f].(float64)
					sums[f] = total + x
				}
			}
		}
		return []domain.Record{sums}, nil
	})
}
