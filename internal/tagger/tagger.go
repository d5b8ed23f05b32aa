// Package tagger stamps canonical records with provenance and normalised time.
package tagger

import (
	"log/slog"
	"time"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/timefmt"
)

// Tagger attaches the source id and fetch time to records and normalises TIMESTAMP.
type Tagger struct {
	loc    *time.Location
	logger *slog.Logger
}

// New builds a tagger that converts times into loc.
func New(loc *time.Location, logger *slog.Logger) *Tagger {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tagger{loc: loc, logger: logger}
}

// Tag returns a tagged copy of rec. fetchTime is shared by every record of a cycle.
//
// A numeric TIMESTAMP is read as epoch seconds, or milliseconds when above
// timefmt.MillisecondThreshold. Without TIMESTAMP, DATE is parsed with
// dateFormat when both are available. Otherwise TIMESTAMP stays absent.
func (t *Tagger) Tag(rec domain.Record, state string, fetchTime time.Time, dateFormat string) domain.Record {
	out := rec.Clone()
	out[domain.FetchTimestamp] = fetchTime
	out[domain.State] = state

	switch {
	case out.Present(domain.Timestamp):
		ts, ok := t.normalize(out[domain.Timestamp])
		if !ok {
			t.logger.Debug("timestamp left as is", "source", state, "value", out[domain.Timestamp])
			return out
		}
		out[domain.Timestamp] = ts
	case out.Present(domain.Date) && dateFormat != "":
		if d, ok := out[domain.Date].(time.Time); ok {
			out[domain.Timestamp] = d
			return out
		}
		s, ok := out[domain.Date].(string)
		if !ok {
			t.logger.Warn("date is not text", "source", state, "value", out[domain.Date])
			return out
		}
		ts, err := timefmt.Parse(s, dateFormat, t.loc)
		if err != nil {
			t.logger.Warn("cannot parse date", "source", state, "error", err)
			return out
		}
		out[domain.Timestamp] = ts
	}
	return out
}

func (t *Tagger) normalize(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.In(t.loc), true
	case string:
		if ts, ok := timefmt.ParseISO(x, t.loc); ok {
			return ts, true
		}
	}
	if f, ok := domain.Number(v); ok {
		return timefmt.FromEpoch(f, t.loc), true
	}
	return time.Time{}, false
}

// ApplyConstants merges query constants into a tagged record, in order.
func ApplyConstants(rec domain.Record, constants []domain.Constant) domain.Record {
	if len(constants) == 0 {
		return rec
	}
	out := rec.Clone()
	for _, c := range constants {
		c.Apply(out)
	}
	return out
}
