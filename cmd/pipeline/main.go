package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/daily-prices/internal/blob"
	"github.com/rickgao/daily-prices/internal/config"
	"github.com/rickgao/daily-prices/internal/database"
	"github.com/rickgao/daily-prices/internal/enrich"
	"github.com/rickgao/daily-prices/internal/fetch"
	"github.com/rickgao/daily-prices/internal/history"
	"github.com/rickgao/daily-prices/internal/model"
	"github.com/rickgao/daily-prices/internal/pipeline"
	"github.com/rickgao/daily-prices/internal/scheduler"
	"github.com/rickgao/daily-prices/internal/server"
	"github.com/rickgao/daily-prices/internal/snapshot"
	"github.com/rickgao/daily-prices/internal/symbols"
	"github.com/rickgao/daily-prices/internal/version"
	"github.com/rickgao/daily-prices/internal/warehouse"
	"github.com/rickgao/daily-prices/internal/yahoo"
)

func main() {
	configPath := flag.String("config", "configs/pipeline.local.yaml", "path to config file")
	serve := flag.Bool("serve", false, "serve the HTTP trigger instead of running once")
	schedule := flag.String("schedule", "", "cron expression; run on a schedule instead of once (overrides schedule.cron)")
	runOnStart := flag.Bool("run-on-start", false, "with -schedule, also run immediately")
	importSymbols := flag.String("import-symbols", "", "copy a local symbol CSV into the blob store before starting")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up structured logging
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting pipeline",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger, options{
		serve:         *serve,
		schedule:      *schedule,
		runOnStart:    *runOnStart,
		importSymbols: *importSymbols,
	}); err != nil {
		logger.Error("pipeline exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("pipeline stopped")
}

// options are the command-line mode flags.
type options struct {
	serve         bool
	schedule      string
	runOnStart    bool
	importSymbols string
}

func run(ctx context.Context, cfg *config.PipelineConfig, logger *slog.Logger, opts options) error {
	// Open blob store
	store, err := blob.Open(cfg.Blob.Backend, cfg.Blob.Path)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	defer store.Close()

	if opts.importSymbols != "" {
		data, err := os.ReadFile(opts.importSymbols)
		if err != nil {
			return fmt.Errorf("read symbol file: %w", err)
		}
		if err := store.Put(ctx, cfg.Symbols.File, data); err != nil {
			return fmt.Errorf("import symbol file: %w", err)
		}
		logger.Info("imported symbol file", "from", opts.importSymbols, "to", cfg.Symbols.File)
	}

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Warehouse.Database.Host,
		"port", cfg.Warehouse.Database.Port,
		"database", cfg.Warehouse.Database.Name,
	)
	pool, err := database.Connect(ctx, cfg.Warehouse.Database, "daily-prices-"+cfg.Instance.ID)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Create API client
	client := yahoo.NewClient(
		cfg.Provider.BaseURL,
		yahoo.WithLogger(logger),
		yahoo.WithTimeout(cfg.Provider.Timeout),
		yahoo.WithRetries(cfg.Provider.MaxRetries, time.Second),
		yahoo.WithRateLimit(cfg.Provider.RateLimit),
	)

	var prices fetch.PriceSource = client
	if cfg.Provider.Backend == "finance-go" {
		prices = yahoo.NewFinanceGoFetcher()
	}

	p, err := pipeline.New(
		pipeline.Config{
			Anchor:     cfg.Fetch.AnchorDate(),
			Threshold:  cfg.Enrich.Threshold(),
			Reference:  cfg.Symbols.Reference,
			DateLayout: model.ProviderDateLayout,
		},
		pipeline.Deps{
			Symbols: symbols.NewSource(store, cfg.Symbols.File, cfg.Symbols.Column, cfg.Symbols.Reference, logger),
			Prices: fetch.New(fetch.Config{
				Start:       cfg.Fetch.AnchorDate(),
				Concurrency: cfg.Fetch.Concurrency,
			}, prices, logger),
			Snapshot: snapshot.NewPublisher(store, cfg.Snapshot.Name, logger),
			Enricher: enrich.New(enrich.Config{
				Concurrency: cfg.Enrich.Concurrency,
				Timeout:     cfg.Enrich.Timeout,
			}, client, logger),
			Warehouse: warehouse.NewLoader(warehouse.Config{
				Schema:           cfg.Warehouse.Schema,
				HoldersTable:     cfg.Warehouse.HoldersTable,
				InfoTable:        cfg.Warehouse.InfoTable,
				HoldersChunkSize: cfg.Warehouse.HoldersChunkSize,
				InfoChunkSize:    cfg.Warehouse.InfoChunkSize,
			}, pool, logger),
		},
		logger,
	)
	if err != nil {
		return err
	}

	// Record runs when history is enabled
	var inner pipeline.Runner = p
	var runs *history.Store
	if cfg.History.Enabled {
		runs, err = history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer runs.Close()
		inner = history.NewRecording(p, runs, logger)
	}
	exclusive := pipeline.NewExclusive(inner)
	runner := pipeline.NewTracker(exclusive)

	schedule := opts.schedule
	if schedule == "" {
		schedule = cfg.Schedule.Cron
	}

	switch {
	case opts.serve || schedule != "":
		handler := server.NewHandler(runner, pool, logger)
		if runs != nil {
			handler.WithHistory(runs)
		}
		return runService(ctx, cfg, logger, exclusive, runner, handler, schedule, opts.runOnStart)
	default:
		res, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		if res.Status == pipeline.StatusPartial {
			logger.Warn("run completed with enrichment failures", "symbols", res.EnrichFailed)
		}
		return nil
	}
}

// runService serves the HTTP endpoints and, when schedule is set, runs on a
// cron schedule until ctx is canceled. Before returning it waits for any
// active run so the caller can close the pool and stores.
func runService(ctx context.Context, cfg *config.PipelineConfig, logger *slog.Logger, exclusive *pipeline.Exclusive, runner pipeline.Runner, handler http.Handler, schedule string, runOnStart bool) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var sched *scheduler.Scheduler
	if schedule != "" {
		var err error
		sched, err = scheduler.New(scheduler.Config{
			Spec:       schedule,
			Timeout:    scheduler.DefaultConfig().Timeout,
			RunOnStart: runOnStart,
		}, runner, logger)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	logger.Info("pipeline service running",
		"instance_id", cfg.Instance.ID,
		"run_url", fmt.Sprintf("http://localhost:%d/run", cfg.Server.Port),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
		"schedule", schedule,
	)

	// Wait for shutdown
	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler stop timed out", "error", err)
		}
	}
	httpServer.Shutdown(shutdownCtx)

	// A run triggered over HTTP is detached from its request and may outlive
	// Shutdown.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), scheduler.DefaultConfig().Timeout)
	defer drainCancel()
	logger.Info("waiting for active run to finish")
	if err := exclusive.Close(drainCtx); err != nil {
		logger.Error("active run did not finish before shutdown", "error", err)
	}

	return serveErr
}
