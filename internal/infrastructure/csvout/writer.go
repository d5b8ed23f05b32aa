// Package csvout writes the aggregated table as CSV files.
package csvout

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"HealthFetcher/internal/aggregate"
	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/ports"
)

// SnapshotLayout stamps snapshot file names.
const SnapshotLayout = "20060102150405"

// Writer keeps a base file that each cycle overwrites and a timestamped
// snapshot per cycle next to it.
type Writer struct {
	dir      string
	filename string
	loc      *time.Location
	logger   *slog.Logger
}

var _ ports.TableSink = (*Writer)(nil)

// NewWriter writes <dir>/<filename>.csv and <dir>/<filename>_<stamp>.csv.
func NewWriter(dir, filename string, loc *time.Location, logger *slog.Logger) *Writer {
	if filename == "" {
		filename = "states"
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{dir: dir, filename: filename, loc: loc, logger: logger}
}

// BasePath is the file rewritten on every cycle.
func (w *Writer) BasePath() string {
	return filepath.Join(w.dir, w.filename+".csv")
}

// SnapshotPath is the file for a cycle fetched at t.
func (w *Writer) SnapshotPath(t time.Time) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s.csv", w.filename, t.In(w.loc).Format(SnapshotLayout)))
}

// WriteTable writes the base file and the snapshot.
func (w *Writer) WriteTable(_ context.Context, tbl *aggregate.Table, report domain.CycleReport) error {
	if w.dir != "" {
		if err := os.MkdirAll(w.dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	fetchedAt := report.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	for _, path := range []string{w.BasePath(), w.SnapshotPath(fetchedAt)} {
		if err := writeFile(path, tbl); err != nil {
			return err
		}
	}

	w.logger.Info(fmt.Sprintf("fetched a total of %d cells", tbl.NonEmptyCells()),
		"rows", tbl.Len(), "file", w.BasePath())
	return nil
}

func writeFile(path string, tbl *aggregate.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(tbl.HeaderNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < tbl.Len(); i++ {
		if err := cw.Write(tbl.Cells(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
