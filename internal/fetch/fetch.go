package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/daily-prices/internal/model"
)

// ErrAllFailed is returned when no symbol produced any price data.
var ErrAllFailed = errors.New("every symbol failed to fetch")

// PriceSource fetches the daily series of one symbol in [start, end).
type PriceSource interface {
	FetchPrices(ctx context.Context, symbol string, start, end time.Time) (model.RawSeries, error)
}

// Config holds bulk fetch settings.
type Config struct {
	Start       civil.Date // first requested day, inclusive
	Concurrency int        // max in-flight symbols (default: 8)
}

// SymbolError is a single symbol's fetch failure.
type SymbolError struct {
	Symbol model.Symbol
	Err    error
}

func (e SymbolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Symbol, e.Err)
}

func (e SymbolError) Unwrap() error {
	return e.Err
}

// Report summarizes a bulk fetch.
type Report struct {
	Requested int
	Fetched   int
	Failures  []SymbolError
	Duration  time.Duration
}

// FailedSymbols returns the symbols that failed, sorted.
func (r Report) FailedSymbols() []model.Symbol {
	out := make([]model.Symbol, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Symbol)
	}
	slices.Sort(out)
	return out
}

// Fetcher performs bulk price fetches against a PriceSource.
type Fetcher struct {
	cfg    Config
	source PriceSource
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new Fetcher.
func New(cfg Config, source PriceSource, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Fetcher{
		cfg:    cfg,
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// Fetch retrieves daily series for every symbol from the configured start
// through today. Results are merged into a single RawSeries keyed by symbol.
func (f *Fetcher) Fetch(ctx context.Context, symbols []model.Symbol) (model.RawSeries, Report, error) {
	started := f.now()
	report := Report{Requested: len(symbols)}

	if len(symbols) == 0 {
		return model.RawSeries{}, report, nil
	}

	start := f.cfg.Start.In(time.UTC)
	// period2 is exclusive; include the current day.
	end := f.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)

	var (
		mu  sync.Mutex
		out = model.RawSeries{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)

	for _, sym := range symbols {
		g.Go(func() error {
			raw, err := f.source.FetchPrices(gctx, sym, start, end)
			if err == nil && len(raw[sym]) == 0 {
				err = errors.New("empty series")
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.logger.Warn("failed to fetch prices",
					"symbol", sym,
					"err", err,
				)
				report.Failures = append(report.Failures, SymbolError{Symbol: sym, Err: err})
				return nil
			}
			out.Merge(raw)
			report.Fetched++
			return nil
		})
	}

	// Workers never return errors; failures are collected in the report.
	_ = g.Wait()
	report.Duration = time.Since(started)

	f.logger.Info("price fetch complete",
		"symbols", report.Requested,
		"fetched", report.Fetched,
		"errors", len(report.Failures),
		"duration", report.Duration,
	)

	if err := ctx.Err(); err != nil {
		return nil, report, fmt.Errorf("fetch prices: %w", err)
	}
	if report.Fetched == 0 {
		return nil, report, fmt.Errorf("fetch prices: %w", ErrAllFailed)
	}

	return out, report, nil
}
