package domain

import (
	"fmt"
	"sort"
	"strings"
)

// DateFormatKey is the reserved mapping entry holding a strptime pattern for DATE values.
const DateFormatKey = "__strptime"

// Mapping translates a source's native attribute names to canonical fields.
// It is immutable once built.
type Mapping struct {
	fields     map[string]Field
	dateFormat string
}

// NewMapping validates raw name -> canonical name pairs.
func NewMapping(raw map[string]string) (Mapping, error) {
	m := Mapping{fields: make(map[string]Field, len(raw))}
	for native, canonical := range raw {
		if native == DateFormatKey {
			m.dateFormat = canonical
			continue
		}
		if strings.HasPrefix(native, "__") {
			return Mapping{}, fmt.Errorf("unsupported reserved mapping key %q", native)
		}
		f, err := ParseField(canonical)
		if err != nil {
			return Mapping{}, fmt.Errorf("mapping %q: %w", native, err)
		}
		m.fields[strings.TrimSpace(native)] = f
	}
	return m, nil
}

// MustMapping is NewMapping for literals in code and tests.
func MustMapping(raw map[string]string) Mapping {
	m, err := NewMapping(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// Lookup returns the canonical field for a native name.
func (m Mapping) Lookup(native string) (Field, bool) {
	f, ok := m.fields[strings.TrimSpace(native)]
	return f, ok
}

// DateFormat returns the strptime hint, or "" when the source has none.
func (m Mapping) DateFormat() string {
	return m.dateFormat
}

// Len is the number of native names covered.
func (m Mapping) Len() int {
	return len(m.fields)
}

// Natives lists the mapped native names in sorted order.
func (m Mapping) Natives() []string {
	out := make([]string, 0, len(m.fields))
	for k := range m.fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// With returns a copy extended by extra native -> field pairs.
func (m Mapping) With(extra map[string]Field) Mapping {
	out := Mapping{fields: make(map[string]Field, len(m.fields)+len(extra)), dateFormat: m.dateFormat}
	for k, v := range m.fields {
		out.fields[k] = v
	}
	for k, v := range extra {
		out.fields[k] = v
	}
	return out
}

// WithDateFormat returns a copy whose DATE hint is format.
func (m Mapping) WithDateFormat(format string) Mapping {
	out := m.With(nil)
	out.dateFormat = format
	return out
}
