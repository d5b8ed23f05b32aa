// Package extract locates records inside arbitrarily nested responses and
// renames their attributes into the canonical vocabulary.
package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/timefmt"
)

// Extractor applies a Path and a Mapping to raw responses.
type Extractor struct {
	logger *slog.Logger
	loc    *time.Location
}

// New builds an extractor; DATE hints are parsed in loc.
func New(logger *slog.Logger, loc *time.Location) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{logger: logger, loc: loc}
}

// Extract walks path through raw and maps the attributes found there.
// A wildcard yields a list result unless it matched exactly one element
// (single result) or none (empty single record).
func (e *Extractor) Extract(source string, raw any, path Path, mapping domain.Mapping) (Result, error) {
	recs, list, err := e.walk(source, raw, path, 0, mapping)
	if err != nil {
		return Result{}, err
	}
	if list {
		return collapse(recs), nil
	}
	return Single(recs[0]), nil
}

func (e *Extractor) walk(source string, cur any, path Path, depth int, mapping domain.Mapping) ([]domain.Record, bool, error) {
walk:
	for i := depth; i < len(path); i++ {
		step := path[i]
		switch step.Kind {
		case WildcardStep:
			items, ok := asList(cur)
			if !ok {
				return nil, false, e.shapeError(source, path, i, "wildcard expects a list, got %T", cur)
			}
			out := make([]domain.Record, 0, len(items))
			for _, item := range items {
				sub, _, err := e.walk(source, item, path, i+1, mapping)
				if err != nil {
					return nil, false, err
				}
				out = append(out, sub...)
			}
			return out, true, nil
		case IndexStep:
			items, ok := asList(cur)
			if !ok {
				return nil, false, e.shapeError(source, path, i, "index expects a list, got %T", cur)
			}
			if step.Index < 0 || step.Index >= len(items) {
				return nil, false, e.shapeError(source, path, i, "index %d out of range (len %d)", step.Index, len(items))
			}
			cur = items[step.Index]
		case KeyStep:
			obj, ok := asObject(cur)
			if !ok {
				return nil, false, e.shapeError(source, path, i, "key %q expects an object, got %T", step.Key, cur)
			}
			next, found := obj[step.Key]
			if !found {
				// schema drift: keep whatever sits at this depth
				break walk
			}
			cur = next
		}
	}

	rec, err := e.apply(source, cur, path, mapping)
	if err != nil {
		return nil, false, err
	}
	return []domain.Record{rec}, false, nil
}

// apply renames the attributes of one flat object.
func (e *Extractor) apply(source string, value any, path Path, mapping domain.Mapping) (domain.Record, error) {
	obj, ok := asObject(value)
	if !ok {
		return nil, e.shapeError(source, path, len(path), "terminal value is %T, want an object", value)
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rec := make(domain.Record, len(obj))
	for _, k := range keys {
		f, ok := mapping.Lookup(k)
		if !ok {
			e.logger.Debug("field has no mapping", "source", source, "field", k)
			continue
		}
		v := obj[k]
		if isContainer(v) {
			return nil, e.shapeError(source, path, len(path), "field %q holds a nested %T, want a scalar", k, v)
		}
		rec[f] = v
	}

	if err := e.deriveTimestamp(source, rec, path, mapping.DateFormat()); err != nil {
		return nil, err
	}
	return rec, nil
}

func (e *Extractor) deriveTimestamp(source string, rec domain.Record, path Path, format string) error {
	if format == "" || rec.Present(domain.Timestamp) || !rec.Present(domain.Date) {
		return nil
	}
	switch d := rec[domain.Date].(type) {
	case time.Time:
		rec[domain.Timestamp] = d
		return nil
	default:
		t, err := timefmt.Parse(scalarText(d), format, e.loc)
		if err != nil {
			return &ExtractionError{Source: source, Path: path, Depth: len(path), Reason: "cannot derive TIMESTAMP from DATE", Err: err}
		}
		rec[domain.Timestamp] = t
		return nil
	}
}

func (e *Extractor) shapeError(source string, path Path, depth int, format string, args ...any) error {
	return &ExtractionError{Source: source, Path: path, Depth: depth, Reason: fmt.Sprintf(format, args...)}
}

func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []map[string]any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out, true
	}
	return nil, false
}

func asObject(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case map[string]string:
		out := make(map[string]any, len(x))
		for k, s := range x {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, map[string]string, []any, []map[string]any:
		return true
	}
	return false
}

func scalarText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return fmt.Sprintf("%.0f", x)
	default:
		return fmt.Sprint(x)
	}
}
