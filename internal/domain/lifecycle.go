package domain

import (
	"sort"
	"time"
)

// SourceStatus tracks one source through a fetch cycle.
type SourceStatus string

const (
	StatusPending       SourceStatus = "pending"
	StatusFetching      SourceStatus = "fetching"
	StatusExtracted     SourceStatus = "extracted"
	StatusFetchFailed   SourceStatus = "fetch_failed"
	StatusExtractFailed SourceStatus = "extract_failed"
	StatusTagged        SourceStatus = "tagged"
	StatusMerged        SourceStatus = "merged"
)

// Failed reports whether the status is one of the per-cycle terminal failures.
func (s SourceStatus) Failed() bool {
	return s == StatusFetchFailed || s == StatusExtractFailed
}

// SourceOutcome is the result of one source in one cycle.
type SourceOutcome struct {
	State   string
	Status  SourceStatus
	Records int
	Err     error
}

// CycleReport summarises a fetch cycle.
type CycleReport struct {
	RunID      string
	FetchedAt  time.Time
	FinishedAt time.Time
	Outcomes   []SourceOutcome
	Rows       int
	Cells      int
}

// Succeeded counts sources that contributed records.
func (r CycleReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Status.Failed() && o.Status != StatusPending {
			n++
		}
	}
	return n
}

// Failed counts sources that contributed nothing this cycle.
func (r CycleReport) Failed() int {
	return len(r.Failures())
}

// Failures lists the failed state ids in sorted order.
func (r CycleReport) Failures() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Status.Failed() {
			out = append(out, o.State)
		}
	}
	sort.Strings(out)
	return out
}

// Duration is the wall time of the cycle.
func (r CycleReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.FetchedAt)
}
