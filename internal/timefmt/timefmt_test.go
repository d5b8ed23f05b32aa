package timefmt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToLayout(t *testing.T) {
	t.Parallel()

	cases := []struct {
		pattern string
		want    string
	}{
		{"%Y-%m-%d", "2006-1-2"},
		{"%m/%d/%Y", "1/2/2006"},
		{"%Y%m%d", "200612"},
		{"%d %b %Y %H:%M", "2 Jan 2006 15:4"},
		{"%Y-%m-%dT%H:%M:%S.%f", "2006-1-2T15:4:5.999999"},
		{"100%%", ""},
	}
	for _, tc := range cases {
		got, err := ToLayout(tc.pattern)
		if tc.want == "" {
			require.Error(t, err, tc.pattern)
			continue
		}
		require.NoError(t, err, tc.pattern)
		require.Equal(t, tc.want, got, tc.pattern)
	}
}

func TestToLayoutRejectsUnsupported(t *testing.T) {
	t.Parallel()

	for _, pattern := range []string{"%Q", "%Y-%", "%m-%d-2020", "Mon %d", "%f"} {
		_, err := ToLayout(pattern)
		require.Error(t, err, pattern)
	}
}

func TestParseAcceptsUnpaddedValues(t *testing.T) {
	t.Parallel()

	want := time.Date(2020, time.April, 7, 0, 0, 0, 0, time.UTC)
	for _, value := range []string{"4/7/2020", "04/07/2020", " 4/07/2020 "} {
		got, err := Parse(value, "%m/%d/%Y", time.UTC)
		require.NoError(t, err, value)
		require.True(t, want.Equal(got), "%s -> %s", value, got)
	}

	got, err := Parse("20201005", "%Y%m%d", time.UTC)
	require.NoError(t, err)
	require.True(t, time.Date(2020, time.October, 5, 0, 0, 0, 0, time.UTC).Equal(got))

	_, err = Parse("yesterday", "%Y-%m-%d", time.UTC)
	require.Error(t, err)
}

func TestFromEpochDisambiguatesUnits(t *testing.T) {
	t.Parallel()

	seconds := FromEpoch(1609459200, time.UTC)
	millis := FromEpoch(1609459200000, time.UTC)
	want := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, want.Equal(seconds))
	require.True(t, want.Equal(millis))

	// exactly at the threshold the value is still read as seconds
	atThreshold := FromEpoch(MillisecondThreshold, time.UTC)
	require.Greater(t, atThreshold.Year(), 50000)

	justAbove := FromEpoch(MillisecondThreshold+1000, time.UTC)
	require.True(t, time.Date(2020, time.January, 1, 0, 0, 1, 0, time.UTC).Equal(justAbove))
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	want := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

	for _, v := range []any{
		want,
		1609459200,
		json.Number("1609459200000"),
		"1609459200",
		"2021-01-01",
		"2021-01-01T00:00:00Z",
	} {
		got, ok := Coerce(v, time.UTC)
		require.True(t, ok, "%v", v)
		require.True(t, want.Equal(got), "%v -> %s", v, got)
	}

	for _, v := range []any{nil, "soon", []any{1}, time.Time{}} {
		_, ok := Coerce(v, time.UTC)
		require.False(t, ok, "%v", v)
	}
}

func TestDisplay(t *testing.T) {
	t.Parallel()

	d, err := NewDisplay("%Y%m%d")
	require.NoError(t, err)
	require.Equal(t, "20201005", d.Format(time.Date(2020, time.October, 5, 13, 0, 0, 0, time.UTC)))

	require.Equal(t, "", Display{}.Format(time.Now()))
}
