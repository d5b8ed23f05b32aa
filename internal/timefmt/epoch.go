package timefmt

import (
	"math"
	"strings"
	"time"

	"HealthFetcher/internal/domain"
)

// MillisecondThreshold is 2020-01-01T00:00:00Z in epoch milliseconds.
// Upstream sources emit seconds or milliseconds with no discriminator; any
// value above this threshold is taken to be milliseconds.
const MillisecondThreshold = 1577836800000.0

// FromEpoch converts an epoch value of either unit to a time in loc.
func FromEpoch(v float64, loc *time.Location) time.Time {
	if v > MillisecondThreshold {
		v /= 1000
	}
	sec, frac := math.Modf(v)
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).In(loc)
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// ParseISO accepts the handful of unambiguous layouts upstream APIs use for
// timestamps carried as strings.
func ParseISO(value string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Coerce turns a TIMESTAMP-like value into a time: times pass through,
// numbers are epochs, strings are epochs or ISO-like dates.
func Coerce(v any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch x := v.(type) {
	case time.Time:
		return x.In(loc), !x.IsZero()
	case string:
		if t, ok := ParseISO(x, loc); ok {
			return t, true
		}
	}
	if f, ok := domain.Number(v); ok {
		return FromEpoch(f, loc), true
	}
	return time.Time{}, false
}
