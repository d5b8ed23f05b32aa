package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"HealthFetcher/internal/aggregate"
	"HealthFetcher/internal/domain"
)

func newRepository(t *testing.T) (*SQLRepository, *sql.DB) {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewSQLRepository(db, DriverSQLite)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo, db
}

func report(runID string) domain.CycleReport {
	at := time.Date(2020, time.October, 6, 12, 0, 0, 0, time.UTC)
	return domain.CycleReport{
		RunID:      runID,
		FetchedAt:  at,
		FinishedAt: at.Add(time.Minute),
		Outcomes:   []domain.SourceOutcome{{State: "AK", Status: domain.StatusMerged}},
	}
}

func TestWriteTableUpsertsCells(t *testing.T) {
	t.Parallel()

	repo, db := newRepository(t)
	ctx := context.Background()

	first := &aggregate.Table{
		Index:   []domain.Field{domain.State},
		Columns: []domain.Field{domain.Positive, domain.Death},
		Rows: []domain.Record{
			{domain.State: "AK", domain.Positive: json.Number("10"), domain.Death: 1},
			{domain.State: "AL", domain.Positive: json.Number("20")},
		},
	}
	require.NoError(t, repo.WriteTable(ctx, first, report("run-1")))

	n, err := repo.CountObservations(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	second := &aggregate.Table{
		Index:   []domain.Field{domain.State},
		Columns: []domain.Field{domain.Positive},
		Rows:    []domain.Record{{domain.State: "AK", domain.Positive: json.Number("15")}},
	}
	require.NoError(t, repo.WriteTable(ctx, second, report("run-2")))

	n, err = repo.CountObservations(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, err := repo.Observations(ctx, "AK", "")
	require.NoError(t, err)
	require.Equal(t, map[domain.Field]string{domain.Positive: "15"}, got)

	got, err = repo.Observations(ctx, "AL", "")
	require.NoError(t, err)
	require.Equal(t, map[domain.Field]string{domain.Positive: "20"}, got)

	var cycles int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM fetch_cycles`).Scan(&cycles))
	require.Equal(t, 2, cycles)
}

func TestWriteTableKeysTemporalRows(t *testing.T) {
	t.Parallel()

	repo, _ := newRepository(t)
	ctx := context.Background()

	d1 := time.Date(2020, time.October, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	tbl := &aggregate.Table{
		Index:   []domain.Field{domain.State, domain.Timestamp},
		Columns: []domain.Field{domain.Positive},
		Rows: []domain.Record{
			{domain.State: "AL", domain.Timestamp: d2, domain.Positive: 7},
			{domain.State: "AL", domain.Timestamp: d1, domain.Positive: 5},
		},
	}
	require.NoError(t, repo.WriteTable(ctx, tbl, report("run-1")))

	got, err := repo.Observations(ctx, "AL", aggregate.FormatValue(d1))
	require.NoError(t, err)
	require.Equal(t, "5", got[domain.Positive])

	n, err := repo.CountObservations(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestWriteTableNullRowClearsState(t *testing.T) {
	t.Parallel()

	repo, _ := newRepository(t)
	ctx := context.Background()

	filled := &aggregate.Table{
		Index:   []domain.Field{domain.State},
		Columns: []domain.Field{domain.Positive},
		Rows:    []domain.Record{{domain.State: "AR", domain.Positive: 9}},
	}
	require.NoError(t, repo.WriteTable(ctx, filled, report("run-1")))

	reindexed := &aggregate.Table{
		Index:   []domain.Field{domain.State},
		Columns: []domain.Field{domain.Positive},
		Rows:    []domain.Record{{domain.State: "AR"}},
	}
	require.NoError(t, repo.WriteTable(ctx, reindexed, report("run-2")))

	got, err := repo.Observations(ctx, "AR", "")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestPlaceholdersFollowDriver(t *testing.T) {
	t.Parallel()

	query, _, err := NewSQLRepository(nil, DriverPostgres).builder.
		Insert("observations").Columns("state", "field").Values("AK", "POSITIVE").ToSql()
	require.NoError(t, err)
	require.Contains(t, query, "VALUES ($1,$2)")

	query, _, err = NewSQLRepository(nil, DriverSQLite).builder.
		Insert("observations").Columns("state", "field").Values("AK", "POSITIVE").ToSql()
	require.NoError(t, err)
	require.Contains(t, query, "VALUES (?,?)")
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open("mysql", "dsn")
	require.Error(t, err)
}
