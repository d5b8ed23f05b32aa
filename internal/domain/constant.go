package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Constant is a static value merged into every record produced by a query.
// A "$FIELD" value copies another field of the same record instead.
type Constant struct {
	Field  Field
	Value  any
	CopyOf Field
}

// ParseConstants builds constants from a canonical name -> value table, ordered by field.
func ParseConstants(raw map[string]any) ([]Constant, error) {
	out := make([]Constant, 0, len(raw))
	for name, value := range raw {
		f, err := ParseField(name)
		if err != nil {
			return nil, fmt.Errorf("constant: %w", err)
		}
		c := Constant{Field: f, Value: value}
		if s, ok := value.(string); ok && strings.HasPrefix(s, "$") {
			src, err := ParseField(s[1:])
			if err != nil {
				return nil, fmt.Errorf("constant %s: %w", name, err)
			}
			c.Value = nil
			c.CopyOf = src
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

// Apply writes the constant into rec.
func (c Constant) Apply(rec Record) {
	if c.CopyOf.Valid() {
		rec[c.Field] = rec[c.CopyOf]
		return
	}
	rec[c.Field] = c.Value
}
