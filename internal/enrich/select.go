package enrich

import (
	"slices"

	"cloud.google.com/go/civil"

	"github.com/rickgao/daily-prices/internal/model"
)

// SelectSymbols returns the distinct symbols with at least one record dated on
// or after threshold, excluding reference instruments, sorted.
func SelectSymbols(records []model.DailyPriceRecord, threshold civil.Date, reference []model.Symbol) []model.Symbol {
	seen := make(map[model.Symbol]struct{})
	for _, r := range records {
		if r.Date.Before(threshold) || model.IsReference(r.Symbol, reference) {
			continue
		}
		seen[r.Symbol] = struct{}{}
	}

	out := make([]model.Symbol, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}
