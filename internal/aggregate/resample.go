package aggregate

import (
	"sort"
	"time"

	"HealthFetcher/internal/domain"
)

// reconcile forward-fills and resamples each partition to a daily cadence,
// then orders rows newest first.
func (a *Aggregator) reconcile(rows []domain.Record, columns []domain.Field) []domain.Record {
	var rest []domain.Field
	for _, f := range a.index {
		if f != domain.Timestamp {
			rest = append(rest, f)
		}
	}

	var (
		keys       []string
		partitions = make(map[string][]domain.Record)
	)
	for _, row := range rows {
		k := keyOf(row, rest)
		if _, ok := partitions[k]; !ok {
			keys = append(keys, k)
		}
		partitions[k] = append(partitions[k], row)
	}

	var out []domain.Record
	for _, k := range keys {
		part := partitions[k]
		sort.SliceStable(part, func(i, j int) bool {
			return timestampOf(part[i]).Before(timestampOf(part[j]))
		})
		forwardFill(part, columns)
		out = append(out, a.resample(part)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := timestampOf(out[i]).Compare(timestampOf(out[j])); c != 0 {
			return c > 0
		}
		for _, f := range rest {
			if c := compareValues(out[i][f], out[j][f]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return out
}

// forwardFill carries the last seen value of each column into later rows
// that lack one. Rows before the first observation stay empty.
func forwardFill(part []domain.Record, columns []domain.Field) {
	last := make(map[domain.Field]any, len(columns))
	for _, row := range part {
		for _, f := range columns {
			if v, ok := row[f]; ok && v != nil {
				last[f] = v
				continue
			}
			if v, ok := last[f]; ok {
				row[f] = v
			}
		}
	}
}

// resample emits exactly one row per calendar day from the first to the last
// observed day of a time-sorted partition. The last row of a day wins; days
// without rows repeat the previous day.
func (a *Aggregator) resample(part []domain.Record) []domain.Record {
	if len(part) == 0 {
		return nil
	}
	daily := make(map[int64]domain.Record)
	for _, row := range part {
		daily[a.day(timestampOf(row)).Unix()] = row
	}

	first := a.day(timestampOf(part[0]))
	last := a.day(timestampOf(part[len(part)-1]))

	var (
		out  []domain.Record
		prev domain.Record
	)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		src, ok := daily[d.Unix()]
		if !ok {
			src = prev
		}
		row := src.Clone()
		row[domain.Timestamp] = d
		out = append(out, row)
		prev = src
	}
	return out
}

func (a *Aggregator) day(t time.Time) time.Time {
	t = t.In(a.loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, a.loc)
}

func timestampOf(row domain.Record) time.Time {
	ts, _ := row[domain.Timestamp].(time.Time)
	return ts
}
