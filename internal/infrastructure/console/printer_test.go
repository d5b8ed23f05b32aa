package console

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"HealthFetcher/internal/aggregate"
	"HealthFetcher/internal/domain"
)

func TestPrinterRendersRowsAndSummary(t *testing.T) {
	t.Parallel()

	tbl := &aggregate.Table{
		Index:   []domain.Field{domain.State},
		Columns: []domain.Field{domain.Positive, domain.Death},
		Rows: []domain.Record{
			{domain.State: "AK", domain.Positive: json.Number("1504"), domain.Death: 12},
			{domain.State: "AL"},
		},
	}
	report := domain.CycleReport{Outcomes: []domain.SourceOutcome{
		{State: "AK", Status: domain.StatusMerged},
		{State: "AL", Status: domain.StatusFetchFailed},
	}}

	var buf bytes.Buffer
	if err := NewPrinter(&buf).WriteTable(context.Background(), tbl, report); err != nil {
		t.Fatalf("write table: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"STATE", "POSITIVE", "DEATH", "AK", "1504", "AL", "╭"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "sources ok: 1, failed: 1 [AL], cells: 2") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}
