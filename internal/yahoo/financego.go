package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"github.com/rickgao/daily-prices/internal/model"
)

// FinanceGoFetcher fetches daily bars through github.com/piquette/finance-go.
// Bars carry no exchange offset, so trading days are taken in UTC.
type FinanceGoFetcher struct{}

// NewFinanceGoFetcher creates a fetcher backed by the finance-go chart API.
func NewFinanceGoFetcher() *FinanceGoFetcher {
	return &FinanceGoFetcher{}
}

// FetchPrices implements the price fetcher contract for a single symbol.
func (f *FinanceGoFetcher) FetchPrices(ctx context.Context, symbol string, start, end time.Time) (model.RawSeries, error) {
	params := &chart.Params{
		Params:   finance.Params{Context: &ctx},
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	var bars []*finance.ChartBar
	iter := chart.Get(params)
	for iter.Next() {
		bars = append(bars, iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("finance-go chart %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("finance-go chart %s: %w", symbol, ErrNoData)
	}

	return BarsToRawSeries(symbol, bars), nil
}

// BarsToRawSeries converts finance-go bars to the fetcher's nested series shape.
// finance-go reports missing values as zero, so zero prices become nulls.
func BarsToRawSeries(symbol string, bars []*finance.ChartBar) model.RawSeries {
	out := model.RawSeries{}
	for _, b := range bars {
		if b == nil {
			continue
		}
		date := TradingDate(int64(b.Timestamp), time.UTC).String()
		out.Set(symbol, model.FieldOpen, date, priceCell(b.Open))
		out.Set(symbol, model.FieldHigh, date, priceCell(b.High))
		out.Set(symbol, model.FieldLow, date, priceCell(b.Low))
		out.Set(symbol, model.FieldClose, date, priceCell(b.Close))
		out.Set(symbol, model.FieldAdjClose, date, priceCell(b.AdjClose))
		out.Set(symbol, model.FieldVolume, date, null.FloatFrom(float64(b.Volume)))
	}
	return out
}

func priceCell(d decimal.Decimal) null.Float {
	if d.Sign() == 0 {
		return null.Float{}
	}
	f, _ := d.Float64()
	return null.FloatFrom(f)
}
