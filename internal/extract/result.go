package extract

import "HealthFetcher/internal/domain"

// Result is either a single record or a list of records.
//
// A wildcard that matches exactly one element collapses to a single record,
// so callers cannot tell "one result" apart from "not a list". New code
// should not rely on the distinction and use Records instead.
type Result struct {
	records []domain.Record
	list    bool
}

// Single wraps one record.
func Single(rec domain.Record) Result {
	if rec == nil {
		rec = domain.Record{}
	}
	return Result{records: []domain.Record{rec}}
}

// List wraps records as a list result without collapsing.
func List(recs []domain.Record) Result {
	return Result{records: recs, list: true}
}

// collapse applies the singleton/empty rule to wildcard output.
func collapse(recs []domain.Record) Result {
	switch len(recs) {
	case 0:
		return Single(domain.Record{})
	case 1:
		return Single(recs[0])
	default:
		return List(recs)
	}
}

// IsList reports whether the result is a list.
func (r Result) IsList() bool { return r.list }

// Record returns the single record; for a list it returns the first element.
func (r Result) Record() domain.Record {
	if len(r.records) == 0 {
		return domain.Record{}
	}
	return r.records[0]
}

// Records returns every record regardless of shape.
func (r Result) Records() []domain.Record { return r.records }

// Len is the number of records.
func (r Result) Len() int { return len(r.records) }
