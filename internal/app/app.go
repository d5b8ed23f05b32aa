package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"HealthFetcher/internal/adapters"
	"HealthFetcher/internal/aggregate"
	"HealthFetcher/internal/config"
	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/extract"
	"HealthFetcher/internal/infrastructure/console"
	"HealthFetcher/internal/infrastructure/csvout"
	"HealthFetcher/internal/infrastructure/fetch"
	"HealthFetcher/internal/infrastructure/metrics"
	"HealthFetcher/internal/infrastructure/scheduler"
	"HealthFetcher/internal/infrastructure/storage"
	"HealthFetcher/internal/infrastructure/telegram"
	"HealthFetcher/internal/logging"
	"HealthFetcher/internal/ports"
	"HealthFetcher/internal/sources"
	"HealthFetcher/internal/tagger"
	"HealthFetcher/internal/usecase"
)

// Options toggle optional sinks.
type Options struct {
	// Print renders the table to Out after every cycle.
	Print bool
	Out   io.Writer
	// SkipFiles disables the CSV sink.
	SkipFiles bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	catalog *sources.Catalog
	cycle   *usecase.Cycle
	metrics *metrics.Collector
	db      *sql.DB
}

// LoadCatalog reads the source catalog and mappings named in cfg, resolving
// adapter names against the built-in registry.
func LoadCatalog(cfg config.Config, logger *slog.Logger) (*sources.Catalog, *adapters.Registry, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	loc := cfg.OutputLocation()
	extractor := extract.New(logger.With("component", "extract"), loc)
	registry := adapters.Builtin(extractor, loc)

	catalog, err := sources.LoadCatalog(cfg.Sources.File, cfg.Sources.Mappings, registry)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	return catalog, registry, nil
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	catalog, _, err := LoadCatalog(cfg, baseLogger)
	if err != nil {
		return nil, err
	}

	index, _ := cfg.IndexFields()
	columns, _ := cfg.ColumnFields()
	loc := cfg.OutputLocation()

	aggregator, err := aggregate.New(aggregate.Options{
		Index:      index,
		Columns:    columns,
		Universe:   cfg.States,
		DateFormat: cfg.Dataset.DateFormat,
		Location:   loc,
	}, baseLogger.With("component", "aggregate"))
	if err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}

	fetcher := fetch.New(fetch.Options{
		Timeout:            cfg.Fetch.Timeout,
		UserAgent:          cfg.Fetch.UserAgent,
		PerHostConcurrency: cfg.Fetch.PerHostConcurrency,
		PerHostRate:        cfg.Fetch.PerHostRate,
	}, baseLogger.With("component", "fetch"))

	a := &Application{
		cfg:     cfg,
		logger:  baseLogger,
		catalog: catalog,
		metrics: metrics.NewCollector(),
	}

	var sinks []ports.TableSink
	if !opts.SkipFiles {
		sinks = append(sinks, csvout.NewWriter(cfg.Output.Dir, cfg.Output.Filename, loc, baseLogger.With("component", "csv")))
	}
	if cfg.Database.DSN != "" {
		db, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repo := storage.NewSQLRepository(db, cfg.Database.Driver)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		sinks = append(sinks, repo)
	}
	if opts.Print {
		sinks = append(sinks, console.NewPrinter(opts.Out))
	}

	deps := usecase.CycleDeps{
		Catalog:    catalog,
		Fetcher:    fetcher,
		Tagger:     tagger.New(loc, baseLogger.With("component", "tagger")),
		Aggregator: aggregator,
		Sinks:      sinks,
		Observer:   a.metrics,
		Logger:     baseLogger.With("component", "cycle"),
		Workers:    cfg.Fetch.Workers,
		Timeout:    cfg.Fetch.CycleTimeout,
	}
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		deps.Notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.APIBase)
	}
	a.cycle = usecase.NewCycle(deps)

	baseLogger.Info("application ready",
		"sources", catalog.Len(),
		"universe", len(cfg.States),
		"sinks", len(sinks),
	)
	return a, nil
}

// Run performs a single cycle. A nil states list fetches the whole catalog.
func (a *Application) Run(ctx context.Context, states []string) (domain.CycleReport, error) {
	return a.cycle.Run(ctx, states)
}

// Serve runs cycles on the configured schedule and exposes /metrics until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	driver, err := scheduler.NewCronScheduler(
		a.cfg.Scheduler.CronExpression,
		a.cfg.SchedulerLocation(),
		a.cfg.Scheduler.RunOnStart,
		a.logger.With("component", "scheduler"),
	)
	if err != nil {
		return err
	}
	sched := usecase.NewScheduler(driver, a.cycle, a.logger.With("component", "scheduler"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("metrics listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if err := sched.Start(ctx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("start scheduler: %w", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("metrics server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		a.logger.Warn("stop scheduler", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("stop metrics server", "error", err)
	}
	return runErr
}

// Metrics exposes the collector, mainly for tests.
func (a *Application) Metrics() *metrics.Collector {
	return a.metrics
}

// Close releases the database handle if one was opened.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
