package ports

import (
	"context"
	"time"

	"HealthFetcher/internal/aggregate"
	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/sources"
)

// Fetcher retrieves one query of a source and decodes the response body.
type Fetcher interface {
	Fetch(ctx context.Context, sourceID string, q sources.Query) (any, error)
}

// TableSink persists or renders the table of a finished cycle.
type TableSink interface {
	WriteTable(ctx context.Context, table *aggregate.Table, report domain.CycleReport) error
}

// CycleObserver records cycle outcomes, e.g. as metrics.
type CycleObserver interface {
	ObserveCycle(report domain.CycleReport)
}

// Notifier pushes a cycle summary to Telegram or other channels.
type Notifier interface {
	PublishSummary(ctx context.Context, report domain.CycleReport) error
}

// Scheduler controls when cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
