// Package aggregate reconciles tagged per-source records into one table.
package aggregate

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/timefmt"
)

// Options configure an Aggregator.
type Options struct {
	// Index defaults to STATE alone and must start with STATE.
	Index []domain.Field
	// Columns fixes the value columns. Empty means every observed field in
	// vocabulary order.
	Columns []domain.Field
	// Universe is the closed list of state ids. Empty disables filtering and reindexing.
	Universe []string
	// DateFormat is the strftime pattern of the DATE display column.
	DateFormat string
	Location   *time.Location
}

// Aggregator builds tables. It holds no state between calls.
type Aggregator struct {
	index    []domain.Field
	columns  []domain.Field
	universe []string
	inUniv   map[string]struct{}
	display  timefmt.Display
	loc      *time.Location
	logger   *slog.Logger
}

// New validates opts.
func New(opts Options, logger *slog.Logger) (*Aggregator, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	index := opts.Index
	if len(index) == 0 {
		index = []domain.Field{domain.State}
	}
	if index[0] != domain.State {
		return nil, fmt.Errorf("index must start with %s, got %s", domain.State, index[0])
	}
	seen := make(map[domain.Field]bool, len(index))
	for _, f := range index {
		if !f.Valid() {
			return nil, fmt.Errorf("invalid index field %s", f)
		}
		if seen[f] {
			return nil, fmt.Errorf("duplicate index field %s", f)
		}
		seen[f] = true
	}
	for _, f := range opts.Columns {
		if seen[f] {
			return nil, fmt.Errorf("column %s is already part of the index", f)
		}
	}

	a := &Aggregator{
		index:    slices.Clone(index),
		columns:  slices.Clone(opts.Columns),
		universe: slices.Clone(opts.Universe),
		loc:      opts.Location,
		logger:   logger,
	}
	if a.loc == nil {
		a.loc = time.UTC
	}
	if len(a.universe) > 0 {
		a.inUniv = make(map[string]struct{}, len(a.universe))
		for _, id := range a.universe {
			if _, dup := a.inUniv[id]; dup {
				return nil, fmt.Errorf("duplicate state %q in universe", id)
			}
			a.inUniv[id] = struct{}{}
		}
	}
	if opts.DateFormat != "" {
		d, err := timefmt.NewDisplay(opts.DateFormat)
		if err != nil {
			return nil, err
		}
		a.display = d
	}
	return a, nil
}

// Aggregate flattens per-state records and reconciles them into a Table.
// Records of one state keep their order; across states the input is visited
// in sorted state order. When reindex is set and the index is STATE alone,
// the rows equal the universe exactly.
func (a *Aggregator) Aggregate(perState map[string][]domain.Record, reindex bool) *Table {
	temporal := slices.Contains(a.index, domain.Timestamp)

	states := make([]string, 0, len(perState))
	for id := range perState {
		states = append(states, id)
	}
	sort.Strings(states)

	var (
		order []string
		byKey = make(map[string]domain.Record)
	)
	for _, id := range states {
		for _, rec := range perState[id] {
			row, ok := a.prepare(id, rec, temporal)
			if !ok {
				continue
			}
			key := keyOf(row, a.index)
			if _, dup := byKey[key]; !dup {
				order = append(order, key)
			}
			byKey[key] = row
		}
	}

	rows := make([]domain.Record, 0, len(order))
	for _, key := range order {
		rows = append(rows, byKey[key])
	}

	t := &Table{Index: slices.Clone(a.index), Columns: a.valueColumns(rows, temporal)}
	switch {
	case temporal:
		t.Rows = a.reconcile(rows, t.Columns)
		a.formatDates(t)
	case reindex && len(a.index) == 1 && len(a.universe) > 0:
		t.Rows = a.reindex(byKey)
	default:
		sortRows(rows, a.index)
		t.Rows = rows
	}
	return t
}

// prepare validates and projects one record; ok is false when it is dropped.
func (a *Aggregator) prepare(state string, rec domain.Record, temporal bool) (domain.Record, bool) {
	row := rec.Clone()
	if !row.Present(domain.State) {
		row[domain.State] = state
	}
	id, _ := row[domain.State].(string)
	if a.inUniv != nil {
		if _, ok := a.inUniv[id]; !ok {
			a.logger.Debug("state outside universe dropped", "source", id)
			return nil, false
		}
	}

	if temporal {
		if !row.Present(domain.Timestamp) {
			a.logger.Warn("record without timestamp dropped", "source", id)
			return nil, false
		}
		raw := row[domain.Timestamp]
		ts, ok := timefmt.Coerce(raw, a.loc)
		if !ok {
			a.logger.Warn("cannot coerce timestamp, record dropped", "source", id, "value", raw)
			return nil, false
		}
		row[domain.Timestamp] = ts
	}
	for _, f := range a.index {
		if v, ok := row[f]; !ok || v == nil {
			a.logger.Warn("record missing index value dropped", "source", id, "field", f.String())
			return nil, false
		}
	}

	if len(a.columns) > 0 {
		keep := make(domain.Record, len(a.index)+len(a.columns))
		for _, f := range a.index {
			keep[f] = row[f]
		}
		for _, f := range a.columns {
			if v, ok := row[f]; ok {
				keep[f] = v
			}
		}
		row = keep
	}
	return row, true
}

func (a *Aggregator) valueColumns(rows []domain.Record, temporal bool) []domain.Field {
	var cols []domain.Field
	if len(a.columns) > 0 {
		cols = slices.Clone(a.columns)
	} else {
		seen := make(map[domain.Field]bool)
		for _, f := range a.index {
			seen[f] = true
		}
		for _, row := range rows {
			for f := range row {
				if !seen[f] {
					seen[f] = true
					cols = append(cols, f)
				}
			}
		}
		slices.Sort(cols)
	}
	if temporal && !a.display.IsZero() && !slices.Contains(cols, domain.Date) {
		cols = append(cols, domain.Date)
	}
	return cols
}

func (a *Aggregator) reindex(byKey map[string]domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(a.universe))
	for _, id := range a.universe {
		if row, ok := byKey[keyPart(id)]; ok {
			out = append(out, row)
			continue
		}
		out = append(out, domain.Record{domain.State: id})
	}
	return out
}

func (a *Aggregator) formatDates(t *Table) {
	if a.display.IsZero() {
		return
	}
	for _, row := range t.Rows {
		if ts, ok := row[domain.Timestamp].(time.Time); ok {
			row[domain.Date] = a.display.Format(ts)
		}
	}
}

func keyOf(row domain.Record, fields []domain.Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = keyPart(row[f])
	}
	return strings.Join(parts, "\x1f")
}

func keyPart(v any) string {
	if ts, ok := v.(time.Time); ok {
		return strconv.FormatInt(ts.UnixNano(), 10)
	}
	return FormatValue(v)
}

func sortRows(rows []domain.Record, fields []domain.Field) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, f := range fields {
			if c := compareValues(rows[i][f], rows[j][f]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func compareValues(a, b any) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := domain.Number(a); ok {
		if fb, ok := domain.Number(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}
