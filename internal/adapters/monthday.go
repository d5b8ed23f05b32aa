package adapters

import (
	"fmt"
	"time"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/extract"
	"HealthFetcher/internal/sources"
	"HealthFetcher/internal/timefmt"
)

const (
	defaultMonthDayYear   = "2020"
	defaultMonthDayFormat = "%m-%d"
)

// MonthDay completes DATE values that carry only month and day. The year
// comes from the query's "year" param; the mapping's date hint, if any,
// describes the month-day part.
func MonthDay(extractor *extract.Extractor, loc *time.Location) *sources.CustomAdapter {
	return sources.NewCustom("month_day", func(src *sources.Source, responses []any) ([]domain.Record, error) {
		if len(responses) != len(src.Queries) {
			return nil, fmt.Errorf("%s: %d responses for %d queries", src.ID, len(responses), len(src.Queries))
		}
		format := src.Mapping.DateFormat()
		if format == "" {
			format = defaultMonthDayFormat
		}

		var out []domain.Record
		for i, q := range src.Queries {
			year := q.Params["year"]
			if year == "" {
				year = defaultMonthDayYear
			}
			// the source's own date hint must not be applied to partial dates
			res, err := extractor.Extract(src.ID, responses[i], q.DataPath(), src.Mapping.WithDateFormat(""))
			if err != nil {
				return nil, err
			}
			for _, rec := range res.Records() {
				if len(rec) == 0 {
					continue
				}
				d, ok := rec[domain.Date].(string)
				if !ok || d == "" {
					return nil, fmt.Errorf("%s: record without a month-day DATE", src.ID)
				}
				ts, err := timefmt.Parse(d+" "+year, format+" %Y", loc)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", src.ID, err)
				}
				rec[domain.Timestamp] = ts
				out = append(out, rec)
			}
		}
		return out, nil
	})
}
