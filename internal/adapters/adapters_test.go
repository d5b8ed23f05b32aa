package adapters

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/extract"
	"HealthFetcher/internal/sources"
)

func features(attrs ...map[string]any) map[string]any {
	list := make([]any, len(attrs))
	for i, a := range attrs {
		list[i] = map[string]any{"attributes": a}
	}
	return map[string]any{"features": list}
}

func adapt(t *testing.T, name string, src *sources.Source, responses ...any) []domain.Record {
	t.Helper()
	adapter, err := Builtin(extract.New(nil, nil), time.UTC).Resolve(name)
	require.NoError(t, err)
	parts, err := adapter.Adapt(src, responses)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.Nil(t, parts[0].Constants)
	return parts[0].Result.Records()
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := Builtin(extract.New(nil, nil), nil)
	require.Equal(t, []string{"csv_sum", "cumsum", "html_table", "month_day"}, r.Names())
	require.Equal(t, "declarative", r.Default().Name())

	_, err := r.Resolve("handle_xx")
	require.Error(t, err)

	custom := sources.NewCustom("xx", func(*sources.Source, []any) ([]domain.Record, error) { return nil, nil })
	r.Register(custom)
	got, err := r.Resolve("xx")
	require.NoError(t, err)
	require.Same(t, custom, got)
}

func TestCumsumOrdersAndAccumulates(t *testing.T) {
	t.Parallel()

	src := &sources.Source{
		ID:      "CO",
		Queries: []sources.Query{{URL: "u", Type: sources.TypeArcGIS}},
		Mapping: domain.MustMapping(map[string]string{"ts": "TIMESTAMP", "n": "PCR_TEST_ENCOUNTERS", "note": "UNITS"}),
	}
	resp := features(
		map[string]any{"ts": json.Number("1601683200000"), "n": json.Number("5"), "note": "x"}, // Oct 3
		map[string]any{"ts": json.Number("1601510400000"), "n": json.Number("2"), "note": "x"}, // Oct 1
		map[string]any{"ts": json.Number("1601596800000"), "n": json.Number("3"), "note": "x"}, // Oct 2
	)

	recs := adapt(t, "cumsum", src, resp)
	require.Len(t, recs, 3)

	var totals []float64
	for _, rec := range recs {
		totals = append(totals, rec[domain.PCRTestEncounters].(float64))
		require.Equal(t, "x", rec[domain.Units])
	}
	require.Equal(t, []float64{2, 5, 10}, totals)
	require.True(t, time.Date(2020, time.October, 1, 0, 0, 0, 0, time.UTC).Equal(recs[0][domain.Timestamp].(time.Time)))
}

func TestCumsumNeedsTimestamps(t *testing.T) {
	t.Parallel()

	src := &sources.Source{
		ID:      "CO",
		Queries: []sources.Query{{URL: "u", Type: sources.TypeArcGIS}},
		Mapping: domain.MustMapping(map[string]string{"n": "POSITIVE"}),
	}
	adapter, err := Builtin(extract.New(nil, nil), time.UTC).Resolve("cumsum")
	require.NoError(t, err)
	_, err = adapter.Adapt(src, []any{features(map[string]any{"n": 1}, map[string]any{"n": 2})})
	require.Error(t, err)
}

func TestCSVSum(t *testing.T) {
	t.Parallel()

	src := &sources.Source{
		ID:      "HI",
		Queries: []sources.Query{{URL: "u", Type: sources.TypeCSV, Header: true}},
		Mapping: domain.MustMapping(map[string]string{"Cases": "POSITIVE", "Deaths": "DEATH"}),
	}
	rows := []any{
		map[string]any{"County": "Hawaii", "Cases": "1,200", "Deaths": "3"},
		map[string]any{"County": "Maui", "Cases": "300", "Deaths": ""},
		map[string]any{"County": "Kauai", "Cases": "4", "Deaths": "1"},
	}

	recs := adapt(t, "csv_sum", src, rows)
	require.Equal(t, []domain.Record{{domain.Positive: 1504.0, domain.Death: 4.0}}, recs)

	adapter, _ := Builtin(extract.New(nil, nil), time.UTC).Resolve("csv_sum")
	_, err := adapter.Adapt(src, []any{[]any{map[string]any{"Cases": "n/a"}}})
	require.Error(t, err)
	_, err = adapter.Adapt(src, []any{"not rows"})
	require.Error(t, err)
}

const page = `<html><body>
<p>Updated daily</p>
<table>
  <thead><tr><th>Date</th><th>Positive
      Cases</th><th>Region</th></tr></thead>
  <tbody>
    <tr><td>10/04/2020</td><td>12</td><td>North</td></tr>
    <tr><td>10/05/2020</td><td> 15 </td><td>North</td></tr>
  </tbody>
</table>
<table><tr><th>Ignored</th></tr><tr><td>1</td></tr></table>
</body></html>`

func TestHTMLTable(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	src := &sources.Source{
		ID:      "NE",
		Queries: []sources.Query{{URL: "u", Type: sources.TypeSoup}},
		Mapping: domain.MustMapping(map[string]string{
			"Date":               "DATE",
			"Positive Cases":     "POSITIVE",
			domain.DateFormatKey: "%m/%d/%Y",
		}),
	}

	recs := adapt(t, "html_table", src, doc)
	require.Len(t, recs, 2)
	require.Equal(t, "12", recs[0][domain.Positive])
	require.Equal(t, "15", recs[1][domain.Positive])
	require.True(t, time.Date(2020, time.October, 5, 0, 0, 0, 0, time.UTC).Equal(recs[1][domain.Timestamp].(time.Time)))
}

func TestHTMLTableWithoutTable(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<p>maintenance</p>"))
	require.NoError(t, err)

	adapter, _ := Builtin(extract.New(nil, nil), time.UTC).Resolve("html_table")
	_, err = adapter.Adapt(&sources.Source{ID: "NE"}, []any{doc})
	require.Error(t, err)
}

func TestMonthDay(t *testing.T) {
	t.Parallel()

	src := &sources.Source{
		ID: "AL",
		Queries: []sources.Query{
			{URL: "u1", Type: sources.TypeArcGIS},
			{URL: "u2", Type: sources.TypeArcGIS, Params: map[string]string{"year": "2021"}},
		},
		Mapping: domain.MustMapping(map[string]string{"day": "DATE", "hosp": "CURR_HOSP"}),
	}

	recs := adapt(t, "month_day", src,
		features(map[string]any{"day": "12-31", "hosp": 7}),
		features(map[string]any{"day": "01-02", "hosp": 9}, map[string]any{"day": "1-3", "hosp": 11}),
	)
	require.Len(t, recs, 3)

	want := []time.Time{
		time.Date(2020, time.December, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2021, time.January, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2021, time.January, 3, 0, 0, 0, 0, time.UTC),
	}
	for i, rec := range recs {
		require.True(t, want[i].Equal(rec[domain.Timestamp].(time.Time)), "record %d: %v", i, rec[domain.Timestamp])
	}
}
