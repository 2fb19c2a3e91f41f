package normalize

import (
	"cmp"
	"errors"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rickgao/daily-prices/internal/model"
)

// Canonical column names after case normalization.
const (
	ColOpen     = "open"
	ColHigh     = "high"
	ColLow      = "low"
	ColClose    = "close"
	ColAdjClose = "adj_close"
	ColVolume   = "volume"
)

// priceColumns must all be non-null for a row to be kept.
var priceColumns = []string{ColOpen, ColHigh, ColLow, ColClose, ColAdjClose}

// Stats counts what happened to the input.
type Stats struct {
	Symbols        int
	RowsIn         int // distinct (symbol, date key) pairs seen
	RowsKept       int
	DroppedNull    int // a required price was null or missing
	DroppedBadDate int
	DroppedClose   int // close was zero or negative
	Duplicates     int
}

var lower = cases.Lower(language.Und)

// CanonicalField lower-cases a provider field name and joins words with
// underscores, so "Adj Close" becomes "adj_close".
func CanonicalField(name string) string {
	return strings.Join(strings.Fields(lower.String(name)), "_")
}

// Normalize flattens raw into rows sorted by (symbol, date). Rows with any null
// price or a close that is not positive are dropped, as are dates that do not
// parse with layout. Volume is read but not kept.
func Normalize(raw model.RawSeries, layout string) ([]model.PriceRow, Stats, error) {
	if layout == "" {
		return nil, Stats{}, errors.New("normalize: date layout is required")
	}

	symbols := make([]model.Symbol, 0, len(raw))
	for sym := range raw {
		symbols = append(symbols, sym)
	}
	slices.Sort(symbols)

	stats := Stats{Symbols: len(symbols)}
	var rows []model.PriceRow

	for _, sym := range symbols {
		cols := canonicalColumns(raw[sym])
		keys := dateKeys(cols)
		stats.RowsIn += len(keys)

		for _, key := range keys {
			date, err := parseDate(key, layout)
			if err != nil {
				stats.DroppedBadDate++
				continue
			}

			row, fault := buildRow(sym, date, key, cols)
			switch fault {
			case faultNull:
				stats.DroppedNull++
				continue
			case faultClose:
				stats.DroppedClose++
				continue
			}
			rows = append(rows, row)
		}
	}

	rows, stats.Duplicates = sortAndDedup(rows)
	stats.RowsKept = len(rows)

	return rows, stats, nil
}

// Renormalize re-applies ordering and de-duplication to already flat rows.
// Clean output of Normalize is returned unchanged.
func Renormalize(rows []model.PriceRow) []model.PriceRow {
	out, _ := sortAndDedup(slices.Clone(rows))
	return out
}

// canonicalColumns re-keys a symbol's fields by canonical name. When two
// provider names collapse to the same column, valid values win over nulls.
func canonicalColumns(fields map[string]map[string]null.Float) map[string]map[string]null.Float {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	cols := make(map[string]map[string]null.Float, len(fields))
	for _, name := range names {
		col := CanonicalField(name)
		dst, ok := cols[col]
		if !ok {
			dst = make(map[string]null.Float, len(fields[name]))
			cols[col] = dst
		}
		for date, v := range fields[name] {
			if cur, ok := dst[date]; ok && cur.Valid && !v.Valid {
				continue
			}
			dst[date] = v
		}
	}
	return cols
}

// dateKeys returns every date key present in any known column, sorted.
func dateKeys(cols map[string]map[string]null.Float) []string {
	seen := make(map[string]struct{})
	for _, name := range append(slices.Clone(priceColumns), ColVolume) {
		for key := range cols[name] {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func parseDate(key, layout string) (civil.Date, error) {
	t, err := time.Parse(layout, key)
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(t), nil
}

type rowFault int

const (
	faultNone rowFault = iota
	faultNull
	faultClose
)

// buildRow assembles the row for key. A non-positive close is rejected because
// it would become a zero or negative previous close downstream.
func buildRow(sym model.Symbol, date civil.Date, key string, cols map[string]map[string]null.Float) (model.PriceRow, rowFault) {
	var vals [5]float64
	for i, name := range priceColumns {
		v, ok := cols[name][key]
		if !ok || !v.Valid {
			return model.PriceRow{}, faultNull
		}
		vals[i] = v.Float64
	}
	if vals[3] <= 0 {
		return model.PriceRow{}, faultClose
	}
	return model.PriceRow{
		Date:     date,
		Symbol:   sym,
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		AdjClose: vals[4],
	}, faultNone
}

// sortAndDedup orders rows by (symbol, date) and keeps the first row of each
// key. The sort is stable so "first" means first in input order.
func sortAndDedup(rows []model.PriceRow) ([]model.PriceRow, int) {
	slices.SortStableFunc(rows, Compare)

	out := rows[:0]
	dups := 0
	for _, r := range rows {
		if len(out) > 0 && Compare(out[len(out)-1], r) == 0 {
			dups++
			continue
		}
		out = append(out, r)
	}
	return out, dups
}

// Compare orders rows by symbol, then date.
func Compare(a, b model.PriceRow) int {
	if c := cmp.Compare(a.Symbol, b.Symbol); c != 0 {
		return c
	}
	return a.Date.Compare(b.Date)
}
