package sources

import (
	"fmt"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/extract"
)

// Source is one jurisdiction: its queries, mapping and adapter.
type Source struct {
	ID      string
	Queries []Query
	Mapping domain.Mapping
	Adapter Adapter
}

// Partial is what one adapter step contributes before tagging.
type Partial struct {
	Result    extract.Result
	Constants []domain.Constant
}

// Adapter turns the decoded responses of a source, one per query in query
// order, into canonical records.
type Adapter interface {
	Name() string
	Adapt(src *Source, responses []any) ([]Partial, error)
}

// Resolver looks up adapters named in the catalog.
type Resolver interface {
	Resolve(name string) (Adapter, error)
	Default() Adapter
}

// DeclarativeAdapter applies each query's path and the source mapping.
type DeclarativeAdapter struct {
	extractor *extract.Extractor
}

// NewDeclarative builds the default adapter.
func NewDeclarative(extractor *extract.Extractor) *DeclarativeAdapter {
	return &DeclarativeAdapter{extractor: extractor}
}

// Name implements Adapter.
func (d *DeclarativeAdapter) Name() string { return "declarative" }

// Adapt implements Adapter.
func (d *DeclarativeAdapter) Adapt(src *Source, responses []any) ([]Partial, error) {
	if len(responses) != len(src.Queries) {
		return nil, fmt.Errorf("%s: %d responses for %d queries", src.ID, len(responses), len(src.Queries))
	}
	out := make([]Partial, 0, len(responses))
	for i, q := range src.Queries {
		res, err := d.extractor.Extract(src.ID, responses[i], q.DataPath(), src.Mapping)
		if err != nil {
			return nil, err
		}
		out = append(out, Partial{Result: res, Constants: q.Constants})
	}
	return out, nil
}

// CustomFunc is source-specific logic producing canonical records directly.
type CustomFunc func(src *Source, responses []any) ([]domain.Record, error)

// CustomAdapter wraps a CustomFunc. Query constants are not applied to its output.
type CustomAdapter struct {
	name string
	fn   CustomFunc
}

// NewCustom names fn.
func NewCustom(name string, fn CustomFunc) *CustomAdapter {
	return &CustomAdapter{name: name, fn: fn}
}

// Name implements Adapter.
func (c *CustomAdapter) Name() string { return c.name }

// Adapt implements Adapter.
func (c *CustomAdapter) Adapt(src *Source, responses []any) ([]Partial, error) {
	recs, err := c.fn(src, responses)
	if err != nil {
		return nil, err
	}
	return []Partial{{Result: extract.List(recs)}}, nil
}
