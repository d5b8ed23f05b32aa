package sources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/extract"
)

// Catalog holds every configured source keyed by state id.
type Catalog struct {
	sources map[string]*Source
	states  []string
}

// States lists the configured state ids in sorted order.
func (c *Catalog) States() []string {
	return append([]string(nil), c.states...)
}

// Source returns the source of a state.
func (c *Catalog) Source(id string) (*Source, bool) {
	src, ok := c.sources[id]
	return src, ok
}

// Len is the number of sources.
func (c *Catalog) Len() int { return len(c.sources) }

// LoadCatalog reads the source and mapping files. YAML and JSON5 are
// accepted, chosen by file extension. Any unknown canonical name, query type
// or adapter fails the load.
func LoadCatalog(sourcesPath, mappingsPath string, resolver Resolver) (*Catalog, error) {
	rawSources, err := decodeFile(sourcesPath)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	rawMappings, err := decodeFile(mappingsPath)
	if err != nil {
		return nil, fmt.Errorf("load mappings: %w", err)
	}
	return BuildCatalog(rawSources, rawMappings, resolver)
}

// BuildCatalog assembles a catalog from decoded documents.
func BuildCatalog(rawSources, rawMappings map[string]any, resolver Resolver) (*Catalog, error) {
	mappings := make(map[string]domain.Mapping, len(rawMappings))
	for state, raw := range rawMappings {
		m, err := parseMapping(raw)
		if err != nil {
			return nil, fmt.Errorf("mapping %s: %w", state, err)
		}
		mappings[state] = m
	}

	c := &Catalog{sources: make(map[string]*Source, len(rawSources))}
	for state, raw := range rawSources {
		src, err := parseSource(state, raw, resolver)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", state, err)
		}
		if m, ok := mappings[state]; ok {
			src.Mapping = m
		} else {
			src.Mapping = domain.MustMapping(nil)
		}
		c.sources[state] = src
		c.states = append(c.states, state)
	}
	sort.Strings(c.states)
	return c, nil
}

func decodeFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &out)
	case ".json", ".json5":
		err = json5.Unmarshal(data, &out)
	default:
		return nil, fmt.Errorf("%s: unsupported catalog format", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func parseMapping(raw any) (domain.Mapping, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return domain.Mapping{}, fmt.Errorf("expected a table, got %T", raw)
	}
	pairs := make(map[string]string, len(obj))
	for native, v := range obj {
		s, ok := v.(string)
		if !ok {
			return domain.Mapping{}, fmt.Errorf("%q: expected a canonical name, got %T", native, v)
		}
		pairs[native] = s
	}
	return domain.NewMapping(pairs)
}

func parseSource(state string, raw any, resolver Resolver) (*Source, error) {
	src := &Source{ID: state, Adapter: resolver.Default()}

	var rawQueries any
	switch x := raw.(type) {
	case []any:
		rawQueries = x
	case map[string]any:
		for k := range x {
			if k != "adapter" && k != "queries" {
				return nil, fmt.Errorf("unknown source option %q", k)
			}
		}
		if name, ok := x["adapter"]; ok {
			s, ok := name.(string)
			if !ok {
				return nil, fmt.Errorf("adapter name must be text, got %T", name)
			}
			adapter, err := resolver.Resolve(s)
			if err != nil {
				return nil, err
			}
			src.Adapter = adapter
		}
		rawQueries = x["queries"]
	default:
		return nil, fmt.Errorf("expected a query list or a table, got %T", raw)
	}

	list, ok := rawQueries.([]any)
	if !ok && rawQueries != nil {
		return nil, fmt.Errorf("queries must be a list, got %T", rawQueries)
	}
	for i, rq := range list {
		q, err := parseQuery(rq)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		src.Queries = append(src.Queries, q)
	}
	return src, nil
}

func parseQuery(raw any) (Query, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Query{}, fmt.Errorf("expected a table, got %T", raw)
	}
	q := Query{Header: true}
	for key, v := range obj {
		var err error
		switch key {
		case "url":
			q.URL, err = text(v)
		case "type":
			var s string
			if s, err = text(v); err == nil {
				q.Type, err = ParseQueryType(s)
			}
		case "params":
			q.Params, err = params(v)
		case "method":
			q.Method, err = text(v)
			if err == nil && q.HTTPMethod() != "GET" && q.HTTPMethod() != "POST" {
				err = fmt.Errorf("unsupported method %q", q.Method)
			}
		case "data_path":
			steps, ok := v.([]any)
			if !ok {
				err = fmt.Errorf("expected a list, got %T", v)
				break
			}
			q.Path, err = extract.ParsePath(steps)
		case "constants":
			consts, ok := v.(map[string]any)
			if !ok {
				err = fmt.Errorf("expected a table, got %T", v)
				break
			}
			q.Constants, err = domain.ParseConstants(consts)
		case "header":
			b, ok := v.(bool)
			if !ok {
				err = fmt.Errorf("expected a boolean, got %T", v)
			}
			q.Header = b
		case "encoding":
			q.Encoding, err = text(v)
		case "sheet":
			q.Sheet, err = text(v)
		case "desc":
			q.Desc, err = text(v)
		default:
			err = errors.New("unknown option")
		}
		if err != nil {
			return Query{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	if q.URL == "" {
		return Query{}, fmt.Errorf("url is required")
	}
	if q.Type == "" {
		return Query{}, fmt.Errorf("type is required")
	}
	return q, nil
}

func params(v any) (map[string]string, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a table, got %T", v)
	}
	out := make(map[string]string, len(obj))
	for k, pv := range obj {
		s, err := text(pv)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func text(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("expected a scalar, got %T", v)
}
