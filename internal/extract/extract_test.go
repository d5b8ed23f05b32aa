package extract

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"HealthFetcher/internal/domain"
)

type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) unmappedFields() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range h.records {
		if r.Message != "field has no mapping" {
			continue
		}
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "field" {
				out = append(out, a.Value.String())
			}
			return true
		})
	}
	return out
}

func decode(t *testing.T, body string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

var xMapping = domain.MustMapping(map[string]string{"a": "POSITIVE"})

func TestExtractWildcardPath(t *testing.T) {
	t.Parallel()

	raw := decode(t, `{"features": [{"attributes": {"a": 1}}, {"attributes": {"a": 2}}]}`)
	path := Path{Key("features"), Wildcard(), Key("attributes")}

	res, err := New(nil, nil).Extract("XX", raw, path, xMapping)
	require.NoError(t, err)
	require.True(t, res.IsList())

	want := []domain.Record{
		{domain.Positive: json.Number("1")},
		{domain.Positive: json.Number("2")},
	}
	if diff := cmp.Diff(want, res.Records()); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractCollapsesSingleton(t *testing.T) {
	t.Parallel()

	raw := decode(t, `{"features": [{"attributes": {"a": 1}}]}`)

	res, err := New(nil, nil).Extract("XX", raw, ArcGISPath, xMapping)
	require.NoError(t, err)
	require.False(t, res.IsList())
	require.Equal(t, domain.Record{domain.Positive: json.Number("1")}, res.Record())
}

func TestExtractEmptyListYieldsEmptyRecord(t *testing.T) {
	t.Parallel()

	raw := decode(t, `{"features": []}`)

	res, err := New(nil, nil).Extract("XX", raw, ArcGISPath, xMapping)
	require.NoError(t, err)
	require.False(t, res.IsList())
	require.Empty(t, res.Record())
	require.Equal(t, 1, res.Len())
}

func TestExtractIndexAndKeys(t *testing.T) {
	t.Parallel()

	raw := decode(t, `{"state": {"results": [{"cases": 10}, {"cases": 20}]}}`)
	mapping := domain.MustMapping(map[string]string{"cases": "POSITIVE"})

	res, err := New(nil, nil).Extract("XX", raw, Path{Key("state"), Key("results"), Index(1)}, mapping)
	require.NoError(t, err)
	require.Equal(t, json.Number("20"), res.Record()[domain.Positive])
}

func TestExtractIndexOutOfRange(t *testing.T) {
	t.Parallel()

	raw := decode(t, `{"results": [{"cases": 10}]}`)
	mapping := domain.MustMapping(map[string]string{"cases": "POSITIVE"})

	_, err := New(nil, nil).Extract("XX", raw, Path{Key("results"), Index(3)}, mapping)
	require.Error(t, err)

	var extractErr *ExtractionError
	require.True(t, errors.As(err, &extractErr))
	require.Equal(t, "XX", extractErr.Source)
	require.Equal(t, 1, extractErr.Depth)
}

func TestExtractMissingKeyStopsAtCurrentDepth(t *testing.T) {
	t.Parallel()

	raw := decode(t, `{"cases": 5, "data": {"other": 1}}`)
	mapping := domain.MustMapping(map[string]string{"cases": "POSITIVE"})

	res, err := New(nil, nil).Extract("XX", raw, Path{Key("summary"), Key("data")}, mapping)
	require.NoError(t, err)
	require.Equal(t, domain.Record{domain.Positive: json.Number("5")}, res.Record())
}

func TestExtractNestedContainerIsAnError(t *testing.T) {
	t.Parallel()

	raw := decode(t, `{"cases": {"total": 5}}`)
	mapping := domain.MustMapping(map[string]string{"cases": "POSITIVE"})

	_, err := New(nil, nil).Extract("XX", raw, nil, mapping)
	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	require.Contains(t, extractErr.Reason, "cases")
}

func TestExtractTerminalMustBeObject(t *testing.T) {
	t.Parallel()

	raw := decode(t, `[{"cases": 1}, {"cases": 2}]`)
	_, err := New(nil, nil).Extract("XX", raw, nil, xMapping)
	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
}

func TestExtractReportsEachUnmappedField(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{}
	raw := decode(t, `{"a": 1, "b": 2, " c ": 3}`)

	res, err := New(slog.New(handler), nil).Extract("XX", raw, nil, xMapping)
	require.NoError(t, err)
	require.Equal(t, domain.Record{domain.Positive: json.Number("1")}, res.Record())
	require.Equal(t, []string{" c ", "b"}, handler.unmappedFields())
}

func TestExtractDerivesTimestampFromDate(t *testing.T) {
	t.Parallel()

	mapping := domain.MustMapping(map[string]string{
		"Date":               "DATE",
		"Cases":              "POSITIVE",
		domain.DateFormatKey: "%m/%d/%Y",
	})
	raw := map[string]any{"Date": "10/5/2020", "Cases": "12"}

	res, err := New(nil, time.UTC).Extract("XX", raw, nil, mapping)
	require.NoError(t, err)

	ts, ok := res.Record()[domain.Timestamp].(time.Time)
	require.True(t, ok)
	require.True(t, time.Date(2020, time.October, 5, 0, 0, 0, 0, time.UTC).Equal(ts))
	require.Equal(t, "12", res.Record()[domain.Positive])
}

func TestExtractKeepsExistingTimestamp(t *testing.T) {
	t.Parallel()

	mapping := domain.MustMapping(map[string]string{
		"Date":               "DATE",
		"Updated":            "TIMESTAMP",
		domain.DateFormatKey: "%m/%d/%Y",
	})
	raw := map[string]any{"Date": "10/5/2020", "Updated": 1601856000}

	res, err := New(nil, nil).Extract("XX", raw, nil, mapping)
	require.NoError(t, err)
	require.Equal(t, 1601856000, res.Record()[domain.Timestamp])
}

func TestExtractBadDateIsExtractionError(t *testing.T) {
	t.Parallel()

	mapping := domain.MustMapping(map[string]string{
		"Date":               "DATE",
		domain.DateFormatKey: "%m/%d/%Y",
	})

	_, err := New(nil, nil).Extract("XX", map[string]any{"Date": "last week"}, nil, mapping)
	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	require.Error(t, errors.Unwrap(err))
}

func TestParsePath(t *testing.T) {
	t.Parallel()

	path, err := ParsePath([]any{"features", []any{}, "attributes", 0, float64(2)})
	require.NoError(t, err)
	require.Equal(t, Path{Key("features"), Wildcard(), Key("attributes"), Index(0), Index(2)}, path)
	require.Equal(t, "$.features[*].attributes[0][2]", path.String())

	_, err = ParsePath([]any{[]any{"x"}})
	require.Error(t, err)

	_, err = ParsePath([]any{1.5})
	require.Error(t, err)
}
