package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"HealthFetcher/internal/aggregate"
	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS fetch_cycles (
		run_id      TEXT PRIMARY KEY,
		fetched_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		succeeded   INTEGER NOT NULL,
		failed      INTEGER NOT NULL,
		failures    TEXT NOT NULL,
		row_count   INTEGER NOT NULL,
		cell_count  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS observations (
		state      TEXT NOT NULL,
		obs_key    TEXT NOT NULL,
		field      TEXT NOT NULL,
		value      TEXT NOT NULL,
		run_id     TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		PRIMARY KEY (state, obs_key, field)
	)`,
}

// SQLRepository stores every non-empty cell of the table as an observation.
// Each row replaces the cells stored under its key by earlier cycles.
type SQLRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.TableSink = (*SQLRepository)(nil)

// Open connects using one of the supported drivers.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewSQLRepository wires a sql.DB opened with driver.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &SQLRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// Migrate creates the tables when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// WriteTable records the cycle and upserts its cells in one transaction.
func (r *SQLRepository) WriteTable(ctx context.Context, tbl *aggregate.Table, report domain.CycleReport) (err error) {
	if r.db == nil {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	fetchedAt := report.FetchedAt.UTC().Format(time.RFC3339)

	query, args, err := r.builder.
		Insert("fetch_cycles").
		Columns("run_id", "fetched_at", "finished_at", "succeeded", "failed", "failures", "row_count", "cell_count").
		Values(report.RunID, fetchedAt, report.FinishedAt.UTC().Format(time.RFC3339),
			report.Succeeded(), report.Failed(), strings.Join(report.Failures(), ","), tbl.Len(), tbl.NonEmptyCells()).
		Suffix("ON CONFLICT (run_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build cycle insert: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}

	for i, row := range tbl.Rows {
		state := aggregate.FormatValue(row[domain.State])
		key := observationKey(tbl, row)

		// the row replaces whatever an earlier cycle stored under its key,
		// so a null row clears it
		query, args, err = r.builder.
			Delete("observations").
			Where(sq.Eq{"state": state, "obs_key": key}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build observation delete: %w", err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear row %d: %w", i, err)
		}

		for _, f := range tbl.Columns {
			value := aggregate.FormatValue(row[f])
			if value == "" {
				continue
			}
			query, args, err = r.builder.
				Insert("observations").
				Columns("state", "obs_key", "field", "value", "run_id", "fetched_at").
				Values(state, key, f.String(), value, report.RunID, fetchedAt).
				Suffix("ON CONFLICT (state, obs_key, field) DO UPDATE SET " +
					"value = EXCLUDED.value, run_id = EXCLUDED.run_id, fetched_at = EXCLUDED.fetched_at").
				ToSql()
			if err != nil {
				return fmt.Errorf("build observation upsert: %w", err)
			}
			if _, err = tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert row %d %s: %w", i, f, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CountObservations returns the number of stored cells.
func (r *SQLRepository) CountObservations(ctx context.Context) (int, error) {
	query, args, err := r.builder.Select("COUNT(*)").From("observations").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

// Observations returns the stored values of one state under key.
func (r *SQLRepository) Observations(ctx context.Context, state, key string) (map[domain.Field]string, error) {
	query, args, err := r.builder.
		Select("field", "value").
		From("observations").
		Where(sq.Eq{"state": state, "obs_key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}

	result := make(map[domain.Field]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		f, err := domain.ParseField(name)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		result[f] = value
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// observationKey joins the index values after STATE; empty for a STATE-only index.
func observationKey(tbl *aggregate.Table, row domain.Record) string {
	var parts []string
	for _, f := range tbl.Index {
		if f == domain.State {
			continue
		}
		parts = append(parts, aggregate.FormatValue(row[f]))
	}
	return strings.Join(parts, "|")
}
