package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/daily-prices/internal/model"
)

// ErrCanceled marks symbols that were never attempted because the run was canceled.
var ErrCanceled = errors.New("enrichment canceled")

// Fetcher provides per-symbol fundamentals.
type Fetcher interface {
	InstitutionalHolders(ctx context.Context, symbol string) ([]model.InstitutionalHolderRecord, error)
	Info(ctx context.Context, symbol string) (model.InstrumentInfoRecord, error)
}

// Config holds enrichment loop configuration.
type Config struct {
	Concurrency int           // Max symbols in flight; 1 is sequential (default: 4)
	Timeout     time.Duration // Per-symbol timeout covering both fetches (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		Timeout:     30 * time.Second,
	}
}

// Failure is one symbol that could not be enriched.
type Failure struct {
	Symbol model.Symbol
	Err    error
}

// Summary counts enrichment outcomes.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// Result is everything one loop run produced.
type Result struct {
	Holders  []model.InstitutionalHolderRecord
	Infos    []model.InstrumentInfoRecord
	Failures []Failure
	Summary  Summary
}

// FailedSymbols returns the failed symbols, sorted.
func (r Result) FailedSymbols() []model.Symbol {
	out := make([]model.Symbol, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Symbol)
	}
	slices.Sort(out)
	return out
}

// outcome is a single symbol's tagged result.
type outcome struct {
	symbol  model.Symbol
	holders []model.InstitutionalHolderRecord
	info    model.InstrumentInfoRecord
	err     error
}

// Loop enriches symbols with a bounded worker pool.
type Loop struct {
	cfg     Config
	fetcher Fetcher
	logger  *slog.Logger
}

// New creates a new Loop.
func New(cfg Config, fetcher Fetcher, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Loop{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Run enriches every symbol and folds the outcomes into a Result.
// Canceling ctx stops new symbols from starting; they are reported as ErrCanceled.
func (l *Loop) Run(ctx context.Context, symbols []model.Symbol) Result {
	start := time.Now()
	res := Result{Summary: Summary{Total: len(symbols)}}
	if len(symbols) == 0 {
		return res
	}

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, l.cfg.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var done atomic.Int64
	tracker := newProgress(len(symbols))

	for _, sym := range symbols {
		wg.Add(1)
		go func(sym model.Symbol) {
			defer wg.Done()

			var o outcome
			select {
			case sem <- struct{}{}:
				o = l.enrichSymbol(ctx, sym)
				<-sem
			case <-ctx.Done():
				o = outcome{symbol: sym, err: ErrCanceled}
			}

			mu.Lock()
			res.fold(o)
			mu.Unlock()

			if o.err != nil {
				l.logger.Warn("failed to enrich symbol",
					"symbol", sym,
					"err", o.err,
				)
			}

			if pct, ok := tracker.step(done.Add(1)); ok {
				l.logger.Debug("enrichment progress",
					"percent", pct,
					"done", done.Load(),
					"total", len(symbols),
				)
			}
		}(sym)
	}

	wg.Wait()

	l.logger.Info("enrichment complete",
		"symbols", res.Summary.Total,
		"succeeded", res.Summary.Succeeded,
		"failed", res.Summary.Failed,
		"holders", len(res.Holders),
		"duration", time.Since(start),
	)

	return res
}

// fold appends one outcome. Holders and info of a symbol go in together.
func (r *Result) fold(o outcome) {
	if o.err != nil {
		r.Failures = append(r.Failures, Failure{Symbol: o.symbol, Err: o.err})
		r.Summary.Failed++
		return
	}
	r.Holders = append(r.Holders, o.holders...)
	r.Infos = append(r.Infos, o.info)
	r.Summary.Succeeded++
}

// enrichSymbol fetches both datasets for one symbol.
func (l *Loop) enrichSymbol(ctx context.Context, sym model.Symbol) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{symbol: sym, err: ErrCanceled}
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	holders, err := l.fetcher.InstitutionalHolders(ctx, sym)
	if err != nil {
		return outcome{symbol: sym, err: fmt.Errorf("holders: %w", err)}
	}
	for i := range holders {
		holders[i].Symbol = sym
	}

	info, err := l.fetcher.Info(ctx, sym)
	if err != nil {
		return outcome{symbol: sym, err: fmt.Errorf("info: %w", err)}
	}
	if len(info.Attributes) == 0 {
		return outcome{symbol: sym, err: errors.New("info: empty attribute set")}
	}
	info.Symbol = sym

	return outcome{symbol: sym, holders: holders, info: info}
}

// progress reports each time another tenth of the work completes.
type progress struct {
	total int64
	last  atomic.Int64
}

func newProgress(total int) *progress {
	return &progress{total: int64(total)}
}

func (p *progress) step(done int64) (int64, bool) {
	decile := done * 10 / p.total
	for {
		last := p.last.Load()
		if decile <= last {
			return 0, false
		}
		if p.last.CompareAndSwap(last, decile) {
			return decile * 10, true
		}
	}
}
