package derive

import (
	"slices"

	"cloud.google.com/go/civil"

	"github.com/rickgao/daily-prices/internal/model"
	"github.com/rickgao/daily-prices/internal/normalize"
)

// priorClose is the close of the preceding row in the same symbol group.
type priorClose struct {
	value float64
	ok    bool
}

// fallbackPreviousClose picks the previous close for a row closing at current.
func fallbackPreviousClose(prior priorClose, current float64) (float64, model.PreviousCloseSource) {
	switch {
	case !prior.ok:
		return current, model.FirstObservation
	case prior.value == 0:
		return current, model.ZeroFallback
	default:
		return prior.value, model.PriorDay
	}
}

// Compute derives previous close, percent change and multiplier for every row,
// then drops rows dated on the anchor. Input is regrouped by (symbol, date)
// without modifying the caller's slice.
func Compute(rows []model.PriceRow, anchor civil.Date) []model.DailyPriceRecord {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, normalize.Compare)

	out := make([]model.DailyPriceRecord, 0, len(sorted))
	var prior priorClose

	for i, row := range sorted {
		if i == 0 || sorted[i-1].Symbol != row.Symbol {
			prior = priorClose{}
		}

		prev, source := fallbackPreviousClose(prior, row.Close)
		rec := model.DailyPriceRecord{
			PriceRow:            row,
			PreviousClose:       prev,
			PreviousCloseSource: source,
		}
		if prev != 0 {
			rec.PercentChange = (row.Close - prev) / prev
		}
		rec.PercentChangeMultiplier = 1 + rec.PercentChange

		prior = priorClose{value: row.Close, ok: true}

		if row.Date == anchor {
			continue
		}
		out = append(out, rec)
	}

	return out
}
