package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/rickgao/daily-prices/internal/derive"
	"github.com/rickgao/daily-prices/internal/enrich"
	"github.com/rickgao/daily-prices/internal/fetch"
	"github.com/rickgao/daily-prices/internal/model"
	"github.com/rickgao/daily-prices/internal/normalize"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial" // sinks written, some symbols failed to enrich
)

// SymbolSource lists the symbols for a run.
type SymbolSource interface {
	Symbols(ctx context.Context) ([]model.Symbol, error)
}

// PriceFetcher fetches raw daily series for many symbols.
type PriceFetcher interface {
	Fetch(ctx context.Context, symbols []model.Symbol) (model.RawSeries, fetch.Report, error)
}

// SnapshotPublisher replaces the published price snapshot.
type SnapshotPublisher interface {
	Publish(ctx context.Context, records []model.DailyPriceRecord) error
}

// Enricher fetches fundamentals for a set of symbols.
type Enricher interface {
	Run(ctx context.Context, symbols []model.Symbol) enrich.Result
}

// WarehouseLoader replaces the enrichment tables.
type WarehouseLoader interface {
	ReplaceHolders(ctx context.Context, records []model.InstitutionalHolderRecord) error
	ReplaceInfo(ctx context.Context, records []model.InstrumentInfoRecord) error
}

// Config holds run parameters.
type Config struct {
	Anchor     civil.Date     // fetch start; seeds previous close and is dropped from output
	Threshold  civil.Date     // symbols with a row on or after this date are enriched
	Reference  []model.Symbol // never enriched
	DateLayout string         // layout of RawSeries date keys
}

// Deps are the collaborators of a run.
type Deps struct {
	Symbols   SymbolSource
	Prices    PriceFetcher
	Snapshot  SnapshotPublisher
	Enricher  Enricher
	Warehouse WarehouseLoader
}

// Result describes a completed run.
type Result struct {
	RunID        string          `json:"run_id"`
	Status       string          `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	Duration     time.Duration   `json:"duration_ns"`
	Symbols      int             `json:"symbols"`
	FetchFailed  []model.Symbol  `json:"fetch_failed,omitempty"`
	Normalize    normalize.Stats `json:"normalize"`
	PriceRows    int             `json:"price_rows"`
	Enrichment   enrich.Summary  `json:"enrichment"`
	EnrichFailed []model.Symbol  `json:"enrich_failed,omitempty"`
	HolderRows   int             `json:"holder_rows"`
	InfoRows     int             `json:"info_rows"`
}

// Pipeline runs batches.
type Pipeline struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
}

// New creates a new Pipeline.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Symbols == nil || deps.Prices == nil || deps.Snapshot == nil || deps.Enricher == nil || deps.Warehouse == nil {
		return nil, errors.New("pipeline: all collaborators are required")
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = model.ProviderDateLayout
	}
	if cfg.Reference == nil {
		cfg.Reference = model.ReferenceInstruments
	}
	return &Pipeline{cfg: cfg, deps: deps, logger: logger}, nil
}

// Run executes one batch. A returned error means a sink or input stage failed;
// the Result is still populated with whatever completed.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With("run_id", res.RunID)
	logger.Info("pipeline run started",
		"anchor", p.cfg.Anchor,
		"threshold", p.cfg.Threshold,
	)

	err := p.run(ctx, logger, &res)
	res.Duration = time.Since(res.StartedAt)

	if err != nil {
		logger.Error("pipeline run failed",
			"err", err,
			"duration", res.Duration,
		)
		return res, err
	}

	res.Status = StatusSuccess
	if res.Enrichment.Failed > 0 {
		res.Status = StatusPartial
	}

	logger.Info("pipeline run complete",
		"status", res.Status,
		"symbols", res.Symbols,
		"price_rows", res.PriceRows,
		"enriched", res.Enrichment.Succeeded,
		"enrich_failed", res.Enrichment.Failed,
		"duration", res.Duration,
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, res *Result) error {
	symbols, err := p.deps.Symbols.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("load symbols: %w", err)
	}
	res.Symbols = len(symbols)

	raw, report, err := p.deps.Prices.Fetch(ctx, symbols)
	res.FetchFailed = report.FailedSymbols()
	if err != nil {
		return err
	}

	rows, stats, err := normalize.Normalize(raw, p.cfg.DateLayout)
	res.Normalize = stats
	if err != nil {
		return err
	}
	logger.Debug("normalized prices",
		"rows_in", stats.RowsIn,
		"rows_kept", stats.RowsKept,
		"dropped_null", stats.DroppedNull,
		"dropped_close", stats.DroppedClose,
		"dropped_bad_date", stats.DroppedBadDate,
		"duplicates", stats.Duplicates,
	)

	records := derive.Compute(rows, p.cfg.Anchor)
	res.PriceRows = len(records)

	if err := p.deps.Snapshot.Publish(ctx, records); err != nil {
		return err
	}

	recent := enrich.SelectSymbols(records, p.cfg.Threshold, p.cfg.Reference)
	logger.Info("selected symbols for enrichment", "count", len(recent))

	enriched := p.deps.Enricher.Run(ctx, recent)
	res.Enrichment = enriched.Summary
	res.EnrichFailed = enriched.FailedSymbols()
	res.HolderRows = len(enriched.Holders)
	res.InfoRows = len(enriched.Infos)

	if err := p.deps.Warehouse.ReplaceHolders(ctx, enriched.Holders); err != nil {
		return fmt.Errorf("load holders: %w", err)
	}
	if err := p.deps.Warehouse.ReplaceInfo(ctx, enriched.Infos); err != nil {
		return fmt.Errorf("load info: %w", err)
	}

	return nil
}
