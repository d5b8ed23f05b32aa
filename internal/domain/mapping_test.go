package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewMapping(t *testing.T) {
	t.Parallel()

	m, err := NewMapping(map[string]string{
		" Cases ":     "POSITIVE",
		"Deaths":      "DEATH",
		DateFormatKey: "%m/%d/%Y",
	})
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())
	require.Equal(t, "%m/%d/%Y", m.DateFormat())

	f, ok := m.Lookup("Cases")
	require.True(t, ok)
	require.Equal(t, Positive, f)

	_, ok = m.Lookup("Recovered")
	require.False(t, ok)
	require.Equal(t, []string{"Cases", "Deaths"}, m.Natives())
}

func TestNewMappingRejectsUnknownNames(t *testing.T) {
	t.Parallel()

	_, err := NewMapping(map[string]string{"Cases": "POSITIVES"})
	require.ErrorContains(t, err, "POSITIVES")

	_, err = NewMapping(map[string]string{"__other": "%Y"})
	require.Error(t, err)
}

func TestConstants(t *testing.T) {
	t.Parallel()

	consts, err := ParseConstants(map[string]any{
		"DEATH_CONFIRMED": "$DEATH",
		"UNITS":           "people",
	})
	require.NoError(t, err)
	require.Len(t, consts, 2)

	rec := Record{Death: 12}
	for _, c := range consts {
		c.Apply(rec)
	}
	require.Equal(t, 12, rec[DeathConfirmed])
	require.Equal(t, "people", rec[Units])

	_, err = ParseConstants(map[string]any{"DEATH": "$NOPE"})
	require.Error(t, err)
}

func TestRecordPresent(t *testing.T) {
	t.Parallel()

	rec := Record{
		Timestamp: 0,
		Date:      "",
		Positive:  3,
		CurrHosp:  time.Time{},
	}
	require.False(t, rec.Present(Timestamp))
	require.False(t, rec.Present(Date))
	require.False(t, rec.Present(CurrHosp))
	require.True(t, rec.Present(Positive))
	require.False(t, rec.Present(Death))
}

func TestCycleReportCounts(t *testing.T) {
	t.Parallel()

	report := CycleReport{Outcomes: []SourceOutcome{
		{State: "WY", Status: StatusMerged},
		{State: "AK", Status: StatusFetchFailed},
		{State: "CA", Status: StatusExtractFailed},
	}}
	require.Equal(t, 1, report.Succeeded())
	require.Equal(t, 2, report.Failed())
	require.Equal(t, []string{"AK", "CA"}, report.Failures())
}
