// Package adapters holds the named custom adapters a catalog entry can select.
package adapters

import (
	"fmt"
	"sort"
	"time"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/extract"
	"HealthFetcher/internal/sources"
)

// Registry keeps a mapping from adapter names to their implementations.
type Registry struct {
	adapters map[string]sources.Adapter
	fallback sources.Adapter
}

var _ sources.Resolver = (*Registry)(nil)

// NewRegistry builds a registry whose default is fallback.
func NewRegistry(fallback sources.Adapter) *Registry {
	return &Registry{adapters: map[string]sources.Adapter{}, fallback: fallback}
}

// Builtin returns a registry with the declarative default and the generic adapters.
func Builtin(extractor *extract.Extractor, loc *time.Location) *Registry {
	if loc == nil {
		loc = time.UTC
	}
	r := NewRegistry(sources.NewDeclarative(extractor))
	r.Register(Cumsum(extractor, loc))
	r.Register(CSVSum())
	r.Register(HTMLTable(extractor))
	r.Register(MonthDay(extractor, loc))
	return r
}

// Register adds or replaces an adapter.
func (r *Registry) Register(adapter sources.Adapter) {
	if r.adapters == nil {
		r.adapters = map[string]sources.Adapter{}
	}
	r.adapters[adapter.Name()] = adapter
}

// Resolve returns an adapter by name or an error if it is absent.
func (r *Registry) Resolve(name string) (sources.Adapter, error) {
	if adapter, ok := r.adapters[name]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("adapter %s is not registered", name)
}

// Default is the adapter of sources that name none.
func (r *Registry) Default() sources.Adapter {
	return r.fallback
}

// Names lists registered adapters.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// extractAll runs the declarative extraction for every response and drops
// empty records.
func extractAll(extractor *extract.Extractor, src *sources.Source, responses []any) ([]domain.Record, error) {
	if len(responses) != len(src.Queries) {
		return nil, fmt.Errorf("%s: %d responses for %d queries", src.ID, len(responses), len(src.Queries))
	}
	var out []domain.Record
	for i, q := range src.Queries {
		res, err := extractor.Extract(src.ID, responses[i], q.DataPath(), src.Mapping)
		if err != nil {
			return nil, err
		}
		for _, rec := range res.Records() {
			if len(rec) > 0 {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}
