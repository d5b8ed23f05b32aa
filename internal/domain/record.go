package domain

import (
	"encoding/json"
	"time"
)

// Record maps canonical fields to scalar values. Values are carried through
// untouched from the raw response; type coercion is up to the consumer.
type Record map[Field]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Present reports whether the field holds a usable value: nil, empty strings,
// zero numbers and zero times all count as absent.
func (r Record) Present(f Field) bool {
	v, ok := r[f]
	if !ok {
		return false
	}
	return !IsBlank(v)
}

// HasData reports whether the record carries anything besides provenance tags.
func (r Record) HasData() bool {
	for f, v := range r {
		switch f {
		case State, FetchTimestamp:
			continue
		}
		if v != nil {
			return true
		}
	}
	return false
}

// IsBlank implements the falsy check used for optional values.
func IsBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	case json.Number:
		f, err := x.Float64()
		return x == "" || (err == nil && f == 0)
	case time.Time:
		return x.IsZero()
	}
	return false
}
