package pipeline

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/daily-prices/internal/enrich"
	"github.com/rickgao/daily-prices/internal/fetch"
	"github.com/rickgao/daily-prices/internal/model"
)

var (
	anchor    = civil.Date{Year: 2019, Month: 12, Day: 31}
	threshold = civil.Date{Year: 2020, Month: 1, Day: 2}
)

type staticSymbols []model.Symbol

func (s staticSymbols) Symbols(context.Context) ([]model.Symbol, error) { return s, nil }

type failingSymbols struct{}

func (failingSymbols) Symbols(context.Context) ([]model.Symbol, error) {
	return nil, errors.New("blob not found")
}

// closesFetcher serves one close per day starting at the anchor.
type closesFetcher map[model.Symbol][]float64

func (f closesFetcher) Fetch(_ context.Context, symbols []model.Symbol) (model.RawSeries, fetch.Report, error) {
	raw := model.RawSeries{}
	report := fetch.Report{Requested: len(symbols)}
	for _, sym := range symbols {
		closes, ok := f[sym]
		if !ok {
			report.Failures = append(report.Failures, fetch.SymbolError{Symbol: sym, Err: errors.New("404")})
			continue
		}
		for i, c := range closes {
			d := anchor.AddDays(i).String()
			for _, field := range []string{model.FieldOpen, model.FieldHigh, model.FieldLow, model.FieldClose, model.FieldAdjClose} {
				raw.Set(sym, field, d, null.FloatFrom(c))
			}
		}
		report.Fetched++
	}
	return raw, report, nil
}

type recordingPublisher struct {
	records []model.DailyPriceRecord
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, records []model.DailyPriceRecord) error {
	p.records = records
	return p.err
}

type fakeEnricher struct {
	fail    map[model.Symbol]bool
	symbols []model.Symbol
}

func (e *fakeEnricher) Run(_ context.Context, symbols []model.Symbol) enrich.Result {
	e.symbols = symbols
	res := enrich.Result{Summary: enrich.Summary{Total: len(symbols)}}
	for _, sym := range symbols {
		if e.fail[sym] {
			res.Failures = append(res.Failures, enrich.Failure{Symbol: sym, Err: errors.New("no data")})
			res.Summary.Failed++
			continue
		}
		res.Holders = append(res.Holders, model.InstitutionalHolderRecord{Symbol: sym, Holder: "Vanguard"})
		res.Infos = append(res.Infos, model.InstrumentInfoRecord{Symbol: sym, Attributes: map[string]any{"symbol": sym}})
		res.Summary.Succeeded++
	}
	return res
}

type recordingWarehouse struct {
	holders    []model.InstitutionalHolderRecord
	infos      []model.InstrumentInfoRecord
	holdersErr error
}

func (w *recordingWarehouse) ReplaceHolders(_ context.Context, r []model.InstitutionalHolderRecord) error {
	w.holders = r
	return w.holdersErr
}

func (w *recordingWarehouse) ReplaceInfo(_ context.Context, r []model.InstrumentInfoRecord) error {
	w.infos = r
	return nil
}

type fixture struct {
	deps      Deps
	publisher *recordingPublisher
	enricher  *fakeEnricher
	warehouse *recordingWarehouse
}

func newFixture() *fixture {
	f := &fixture{
		publisher: &recordingPublisher{},
		enricher:  &fakeEnricher{},
		warehouse: &recordingWarehouse{},
	}
	f.deps = Deps{
		Symbols: staticSymbols{"AAA", "OLD", "GONE", "GC=F"},
		Prices: closesFetcher{
			"AAA":  {10, 11, 9},
			"OLD":  {5, 6},
			"GC=F": {2000, 2010, 2020},
		},
		Snapshot:  f.publisher,
		Enricher:  f.enricher,
		Warehouse: f.warehouse,
	}
	return f
}

func newPipeline(t *testing.T, deps Deps) *Pipeline {
	t.Helper()
	p, err := New(Config{Anchor: anchor, Threshold: threshold}, deps, nil)
	require.NoError(t, err)
	return p
}

func TestPipeline_Run(t *testing.T) {
	f := newFixture()
	p := newPipeline(t, f.deps)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 4, res.Symbols)
	assert.Equal(t, []model.Symbol{"GONE"}, res.FetchFailed)

	// AAA: 2 rows, OLD: 1 row, GC=F: 2 rows; anchor rows dropped.
	assert.Equal(t, 5, res.PriceRows)
	require.Len(t, f.publisher.records, 5)
	for _, r := range f.publisher.records {
		assert.NotEqual(t, anchor, r.Date)
	}
	first := f.publisher.records[0]
	assert.Equal(t, "AAA", first.Symbol)
	assert.Equal(t, 10.0, first.PreviousClose)
	assert.InDelta(t, 0.1, first.PercentChange, 1e-9)

	// OLD's only retained row is before the threshold; GC=F is a reference instrument.
	assert.Equal(t, []model.Symbol{"AAA"}, f.enricher.symbols)
	assert.Len(t, f.warehouse.holders, 1)
	assert.Len(t, f.warehouse.infos, 1)
	assert.Equal(t, enrich.Summary{Total: 1, Succeeded: 1}, res.Enrichment)
}

func TestPipeline_PartialOnEnrichmentFailure(t *testing.T) {
	f := newFixture()
	f.enricher.fail = map[model.Symbol]bool{"AAA": true}
	p := newPipeline(t, f.deps)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, []model.Symbol{"AAA"}, res.EnrichFailed)
	assert.Empty(t, f.warehouse.holders)
}

func TestPipeline_SinkErrorsAreFatal(t *testing.T) {
	t.Run("snapshot", func(t *testing.T) {
		f := newFixture()
		f.publisher.err = errors.New("permission denied")
		p := newPipeline(t, f.deps)

		_, err := p.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "permission denied")
		assert.Nil(t, f.enricher.symbols, "enrichment should not run after a snapshot failure")
	})

	t.Run("warehouse", func(t *testing.T) {
		f := newFixture()
		f.warehouse.holdersErr = errors.New("connection refused")
		p := newPipeline(t, f.deps)

		res, err := p.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load holders")
		assert.Empty(t, res.Status)
	})
}

func TestPipeline_SymbolSourceFailure(t *testing.T) {
	f := newFixture()
	f.deps.Symbols = failingSymbols{}
	p := newPipeline(t, f.deps)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load symbols")
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{}, nil)
	assert.Error(t, err)
}
