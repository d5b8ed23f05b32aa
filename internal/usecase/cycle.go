package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"HealthFetcher/internal/aggregate"
	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/ports"
	"HealthFetcher/internal/sources"
	"HealthFetcher/internal/tagger"
)

// ErrNoData marks a source whose responses mapped to nothing.
var ErrNoData = errors.New("no mapped values")

// CycleDeps wires all driven adapters into the fetch cycle.
type CycleDeps struct {
	Catalog    *sources.Catalog
	Fetcher    ports.Fetcher
	Tagger     *tagger.Tagger
	Aggregator *aggregate.Aggregator
	Sinks      []ports.TableSink
	Observer   ports.CycleObserver
	Notifier   ports.Notifier
	Logger     *slog.Logger

	// Workers bounds concurrent sources; zero means one per source.
	Workers int
	// Timeout bounds the whole fan-out; results gathered so far are kept.
	Timeout time.Duration
	Clock   func() time.Time
}

// Cycle runs one fetch-extract-aggregate pass over the catalog.
type Cycle struct {
	catalog    *sources.Catalog
	fetcher    ports.Fetcher
	tagger     *tagger.Tagger
	aggregator *aggregate.Aggregator
	sinks      []ports.TableSink
	observer   ports.CycleObserver
	notifier   ports.Notifier
	logger     *slog.Logger
	workers    int
	timeout    time.Duration
	clock      func() time.Time
}

// NewCycle constructs the orchestration component.
func NewCycle(deps CycleDeps) *Cycle {
	c := &Cycle{
		catalog:    deps.Catalog,
		fetcher:    deps.Fetcher,
		tagger:     deps.Tagger,
		aggregator: deps.Aggregator,
		sinks:      deps.Sinks,
		observer:   deps.Observer,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		workers:    deps.Workers,
		timeout:    deps.Timeout,
		clock:      deps.Clock,
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.tagger == nil {
		c.tagger = tagger.New(time.UTC, c.logger)
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c
}

// Run collects the table and hands it to every sink, the observer and the notifier.
// A nil states list fetches the whole catalog and reindexes against the universe.
func (c *Cycle) Run(ctx context.Context, states []string) (domain.CycleReport, error) {
	table, report, err := c.Collect(ctx, states)
	if err != nil {
		return report, err
	}

	var sinkErrs []error
	for _, sink := range c.sinks {
		if err := sink.WriteTable(ctx, table, report); err != nil {
			c.logger.Error("sink failed", "run_id", report.RunID, "error", err)
			sinkErrs = append(sinkErrs, err)
		}
	}

	if c.observer != nil {
		c.observer.ObserveCycle(report)
	}
	if c.notifier != nil {
		if err := c.notifier.PublishSummary(ctx, report); err != nil {
			c.logger.Warn("publish summary", "run_id", report.RunID, "error", err)
		}
	}

	if len(sinkErrs) > 0 {
		return report, fmt.Errorf("write table: %w", errors.Join(sinkErrs...))
	}
	return report, nil
}

// Collect fans out over the sources, waits for all of them and aggregates.
// Only cancellation of ctx aborts the cycle; a cycle timeout keeps whatever
// finished in time.
func (c *Cycle) Collect(ctx context.Context, states []string) (*aggregate.Table, domain.CycleReport, error) {
	if c.catalog == nil || c.fetcher == nil || c.aggregator == nil {
		return nil, domain.CycleReport{}, fmt.Errorf("cycle is not fully configured")
	}

	ids, reindex, err := c.selectStates(states)
	if err != nil {
		return nil, domain.CycleReport{}, err
	}

	report := domain.CycleReport{
		RunID:     uuid.NewString(),
		FetchedAt: c.clock(),
		Outcomes:  make([]domain.SourceOutcome, len(ids)),
	}
	logger := c.logger.With("run_id", report.RunID)
	logger.Info("cycle started", "sources", len(ids), "reindex", reindex)

	cycleCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	records := make([][]domain.Record, len(ids))
	for i, id := range ids {
		report.Outcomes[i] = domain.SourceOutcome{State: id, Status: domain.StatusPending}
	}

	workers := c.workers
	if workers <= 0 {
		workers = len(ids)
	}
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i, id := range ids {
		if cycleCtx.Err() != nil {
			report.Outcomes[i] = domain.SourceOutcome{State: id, Status: domain.StatusFetchFailed, Err: cycleCtx.Err()}
			continue
		}
		src, _ := c.catalog.Source(id)
		g.Go(func() error {
			records[i], report.Outcomes[i] = c.runSource(cycleCtx, logger, src, report.FetchedAt)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, report, fmt.Errorf("cycle %s cancelled: %w", report.RunID, err)
	}
	if errors.Is(cycleCtx.Err(), context.DeadlineExceeded) {
		logger.Warn("cycle timed out, aggregating partial results", "timeout", c.timeout)
	}

	perState := make(map[string][]domain.Record, len(ids))
	for i, o := range report.Outcomes {
		if o.Status.Failed() {
			continue
		}
		perState[o.State] = records[i]
		report.Outcomes[i].Status = domain.StatusMerged
	}

	table := c.aggregator.Aggregate(perState, reindex)
	report.Rows = table.Len()
	report.Cells = table.NonEmptyCells()
	report.FinishedAt = c.clock()

	logger.Info("cycle finished",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"failures", report.Failures(),
		"rows", report.Rows,
		"cells", report.Cells,
		"duration", report.Duration(),
	)
	return table, report, nil
}

func (c *Cycle) selectStates(states []string) ([]string, bool, error) {
	if states == nil {
		return c.catalog.States(), true, nil
	}
	out := make([]string, 0, len(states))
	seen := make(map[string]bool, len(states))
	for _, id := range states {
		if _, ok := c.catalog.Source(id); !ok {
			return nil, false, fmt.Errorf("no source configured for state %q", id)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, false, nil
}

// runSource drives one source through its lifecycle. It never returns an
// error: failures are recorded in the outcome.
func (c *Cycle) runSource(ctx context.Context, logger *slog.Logger, src *sources.Source, fetchTime time.Time) (recs []domain.Record, out domain.SourceOutcome) {
	out = domain.SourceOutcome{State: src.ID, Status: domain.StatusFetching}
	defer func() {
		if r := recover(); r != nil {
			recs = nil
			out.Status = domain.StatusExtractFailed
			out.Err = fmt.Errorf("panic: %v", r)
			logger.Error("source panicked", "source", src.ID, "error", out.Err)
		}
	}()

	responses := make([]any, 0, len(src.Queries))
	for _, q := range src.Queries {
		resp, err := c.fetcher.Fetch(ctx, src.ID, q)
		if err != nil {
			logger.Error("fetch failed", "source", src.ID, "url", q.URL, "error", err)
			out.Status, out.Err = domain.StatusFetchFailed, err
			return nil, out
		}
		responses = append(responses, resp)
	}

	parts, err := src.Adapter.Adapt(src, responses)
	if err != nil {
		logger.Error("extract failed", "source", src.ID, "adapter", src.Adapter.Name(), "error", err)
		out.Status, out.Err = domain.StatusExtractFailed, err
		return nil, out
	}
	out.Status = domain.StatusExtracted

	recs = c.assemble(src, parts, fetchTime)
	if len(recs) == 0 {
		logger.Error("extract failed", "source", src.ID, "adapter", src.Adapter.Name(), "error", ErrNoData)
		out.Status, out.Err = domain.StatusExtractFailed, fmt.Errorf("%s: %w", src.ID, ErrNoData)
		return nil, out
	}
	out.Status = domain.StatusTagged
	out.Records = len(recs)
	return recs, out
}

// assemble tags every partial and applies its query constants. Non-list
// partials observed at the same TIMESTAMP (or without one) merge into one
// record, later queries overriding earlier values; a partial at another
// TIMESTAMP stays its own record. List partials contribute each element.
// Records without data are dropped.
func (c *Cycle) assemble(src *sources.Source, parts []sources.Partial, fetchTime time.Time) []domain.Record {
	dateFormat := src.Mapping.DateFormat()

	var (
		out   []domain.Record
		slots []int
	)
	for _, p := range parts {
		if p.Result.IsList() {
			for _, rec := range p.Result.Records() {
				tagged := c.tagger.Tag(rec, src.ID, fetchTime, dateFormat)
				out = append(out, tagger.ApplyConstants(tagged, p.Constants))
			}
			continue
		}

		tagged := tagger.ApplyConstants(c.tagger.Tag(p.Result.Record(), src.ID, fetchTime, dateFormat), p.Constants)
		slot := -1
		for _, i := range slots {
			if sameObservation(out[i], tagged) {
				slot = i
				break
			}
		}
		if slot < 0 {
			slots = append(slots, len(out))
			out = append(out, tagged)
			continue
		}
		merged := out[slot]
		for f, v := range tagged {
			if v != nil {
				merged[f] = v
			}
		}
	}

	kept := out[:0]
	for _, rec := range out {
		if rec.HasData() {
			kept = append(kept, rec)
		}
	}
	return kept
}

// sameObservation reports whether two scalar partials describe the same
// point in time. A missing TIMESTAMP matches any.
func sameObservation(a, b domain.Record) bool {
	if !a.Present(domain.Timestamp) || !b.Present(domain.Timestamp) {
		return true
	}
	ta, okA := a[domain.Timestamp].(time.Time)
	tb, okB := b[domain.Timestamp].(time.Time)
	if okA && okB {
		return ta.Equal(tb)
	}
	return aggregate.FormatValue(a[domain.Timestamp]) == aggregate.FormatValue(b[domain.Timestamp])
}
