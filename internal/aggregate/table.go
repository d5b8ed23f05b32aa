package aggregate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"HealthFetcher/internal/domain"
)

// TimeLayout renders time values in table cells.
const TimeLayout = "2006-01-02 15:04:05Z07:00"

// Table is the reconciled output of one cycle.
type Table struct {
	Index   []domain.Field
	Columns []domain.Field
	Rows    []domain.Record
}

// Len is the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Temporal reports whether TIMESTAMP participates in the index.
func (t *Table) Temporal() bool {
	for _, f := range t.Index {
		if f == domain.Timestamp {
			return true
		}
	}
	return false
}

// Header lists index columns followed by value columns.
func (t *Table) Header() []domain.Field {
	out := make([]domain.Field, 0, len(t.Index)+len(t.Columns))
	out = append(out, t.Index...)
	return append(out, t.Columns...)
}

// HeaderNames is Header as strings.
func (t *Table) HeaderNames() []string {
	h := t.Header()
	out := make([]string, len(h))
	for i, f := range h {
		out[i] = f.String()
	}
	return out
}

// Value returns the raw value of row i in column f, nil when absent.
func (t *Table) Value(i int, f domain.Field) any {
	return t.Rows[i][f]
}

// Cells renders row i in header order.
func (t *Table) Cells(i int) []string {
	h := t.Header()
	out := make([]string, len(h))
	for j, f := range h {
		out[j] = FormatValue(t.Rows[i][f])
	}
	return out
}

// NonEmptyCells counts value cells holding data, index columns excluded.
func (t *Table) NonEmptyCells() int {
	n := 0
	for _, row := range t.Rows {
		for _, f := range t.Columns {
			if v, ok := row[f]; ok && v != nil && FormatValue(v) != "" {
				n++
			}
		}
	}
	return n
}

// FormatValue renders a cell value; nil renders as the empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(TimeLayout)
	default:
		return fmt.Sprint(x)
	}
}
