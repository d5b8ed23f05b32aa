package adapters

import (
	"fmt"
	"sort"
	"time"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/extract"
	"HealthFetcher/internal/sources"
	"HealthFetcher/internal/timefmt"
)

// Cumsum turns daily increments into running totals ordered by TIMESTAMP.
// Non-numeric values are carried as they are.
func Cumsum(extractor *extract.Extractor, loc *time.Location) *sources.CustomAdapter {
	return sources.NewCustom("cumsum", func(src *sources.Source, responses []any) ([]domain.Record, error) {
		recs, err := extractAll(extractor, src, responses)
		if err != nil {
			return nil, err
		}

		type dated struct {
			ts  time.Time
			rec domain.Record
		}
		rows := make([]dated, 0, len(recs))
		for _, rec := range recs {
			ts, ok := timefmt.Coerce(rec[domain.Timestamp], loc)
			if !ok {
				return nil, fmt.Errorf("%s: cumsum needs a TIMESTAMP, got %v", src.ID, rec[domain.Timestamp])
			}
			rows = append(rows, dated{ts: ts, rec: rec})
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

		totals := map[domain.Field]float64{}
		out := make([]domain.Record, 0, len(rows))
		for _, row := range rows {
			rec := make(domain.Record, len(row.rec))
			for f, v := range row.rec {
				if f == domain.Timestamp || f == domain.Date {
					continue
				}
				if n, ok := domain.Number(v); ok {
					totals[f] += n
					rec[f] = totals[f]
					continue
				}
				rec[f] = v
			}
			rec[domain.Timestamp] = row.ts
			out = append(out, rec)
		}
		return out, nil
	})
}
