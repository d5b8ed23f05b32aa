package console

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"HealthFetcher/internal/aggregate"
	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/ports"
)

// Printer renders the aggregated table for a terminal.
type Printer struct {
	out io.Writer
}

var _ ports.TableSink = (*Printer)(nil)

// NewPrinter writes to out, or stdout when out is nil.
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out}
}

// WriteTable renders every row followed by a one-line cycle summary.
func (p *Printer) WriteTable(_ context.Context, tbl *aggregate.Table, report domain.CycleReport) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(p.out)
	tw.SetStyle(table.StyleRounded)

	header := table.Row{}
	for _, name := range tbl.HeaderNames() {
		header = append(header, name)
	}
	tw.AppendHeader(header)

	for i := 0; i < tbl.Len(); i++ {
		row := table.Row{}
		for _, cell := range tbl.Cells(i) {
			row = append(row, cell)
		}
		tw.AppendRow(row)
	}
	tw.Render()

	_, err := fmt.Fprintf(p.out, "sources ok: %d, failed: %d %v, cells: %d\n",
		report.Succeeded(), report.Failed(), report.Failures(), tbl.NonEmptyCells())
	return err
}
