package yahoo

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"

	"github.com/rickgao/daily-prices/internal/model"
)

// ToRawSeries converts a chart result into the fetcher's nested series shape.
// Timestamps are mapped to trading days in the exchange's UTC offset.
func (r *ChartResult) ToRawSeries(symbol string) (model.RawSeries, error) {
	n := len(r.Timestamp)
	if n == 0 {
		return nil, fmt.Errorf("chart %s: %w", symbol, ErrNoData)
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart %s: missing quote indicators", symbol)
	}

	q := r.Indicators.Quote[0]
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	columns := []struct {
		field  string
		values []*float64
	}{
		{model.FieldOpen, q.Open},
		{model.FieldHigh, q.High},
		{model.FieldLow, q.Low},
		{model.FieldClose, q.Close},
		{model.FieldAdjClose, adj},
		{model.FieldVolume, q.Volume},
	}

	zone := time.FixedZone(r.Meta.ExchangeTimezoneName, r.Meta.GMTOffset)
	out := model.RawSeries{}
	for i, ts := range r.Timestamp {
		date := TradingDate(ts, zone).String()
		for _, col := range columns {
			out.Set(symbol, col.field, date, cell(col.values, i))
		}
	}

	return out, nil
}

// TradingDate maps a unix timestamp to its calendar date in zone.
func TradingDate(unix int64, zone *time.Location) civil.Date {
	return civil.DateOf(time.Unix(unix, 0).In(zone))
}

// cell returns values[i] as a nullable float; short or nil columns yield null.
func cell(values []*float64, i int) null.Float {
	if i >= len(values) || values[i] == nil {
		return null.Float{}
	}
	return null.FloatFrom(*values[i])
}
