package model

import (
	"slices"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"
)

// Symbol is a provider instrument identifier.
type Symbol = string

// ReferenceInstruments are fetched on every run regardless of the symbol list
// and never enter enrichment: gold and oil futures, FX pairs, the S&P 500 and bitcoin.
var ReferenceInstruments = []Symbol{
	"GC=F",
	"GBPUSD=X",
	"EURUSD=X",
	"USDJPY=X",
	"CL=F",
	"^GSPC",
	"BTC-USD",
}

// Provider field names as returned by the price fetcher.
const (
	FieldOpen     = "Open"
	FieldHigh     = "High"
	FieldLow      = "Low"
	FieldClose    = "Close"
	FieldAdjClose = "Adj Close"
	FieldVolume   = "Volume"
)

// ProviderDateLayout is the date key layout used inside RawSeries.
const ProviderDateLayout = "2006-01-02"

// -----------------------------------------------------------------------------
// Price Types
// -----------------------------------------------------------------------------

// RawSeries is the fetcher output: symbol -> provider field -> date -> value.
// A missing date key and an invalid null.Float both mean "no value".
type RawSeries map[Symbol]map[string]map[string]null.Float

// Set stores a single cell, allocating inner maps as needed.
func (r RawSeries) Set(symbol Symbol, field, date string, v null.Float) {
	fields, ok := r[symbol]
	if !ok {
		fields = make(map[string]map[string]null.Float)
		r[symbol] = fields
	}
	dates, ok := fields[field]
	if !ok {
		dates = make(map[string]null.Float)
		fields[field] = dates
	}
	dates[date] = v
}

// Merge copies every cell of other into r. Cells in other win.
func (r RawSeries) Merge(other RawSeries) {
	for sym, fields := range other {
		for field, dates := range fields {
			for date, v := range dates {
				r.Set(sym, field, date, v)
			}
		}
	}
}

// PriceRow is one normalized (symbol, date) observation before derivation.
type PriceRow struct {
	Date     civil.Date
	Symbol   Symbol
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
}

// PreviousCloseSource records which rule produced a row's previous close.
type PreviousCloseSource int

const (
	// PriorDay means the close of the preceding row in the same symbol group.
	PriorDay PreviousCloseSource = iota
	// FirstObservation means the group had no earlier row; the row's own close was used.
	FirstObservation
	// ZeroFallback means the preceding close was exactly zero; the row's own close was used.
	ZeroFallback
)

func (s PreviousCloseSource) String() string {
	switch s {
	case PriorDay:
		return "prior_day"
	case FirstObservation:
		return "first_observation"
	case ZeroFallback:
		return "zero_fallback"
	default:
		return "unknown"
	}
}

// DailyPriceRecord is a PriceRow with its derived day-over-day fields.
type DailyPriceRecord struct {
	PriceRow

	PreviousClose           float64
	PercentChange           float64 // (Close - PreviousClose) / PreviousClose
	PercentChangeMultiplier float64 // 1 + PercentChange

	PreviousCloseSource PreviousCloseSource // not published
}

// -----------------------------------------------------------------------------
// Enrichment Types
// -----------------------------------------------------------------------------

// InstitutionalHolderRecord is one institutional owner of a symbol.
type InstitutionalHolderRecord struct {
	Symbol       Symbol
	Holder       string
	Shares       int64
	DateReported null.Value[civil.Date] // invalid when unknown
	PctHeld      float64                // fraction of shares outstanding (0.05 = 5%)
	Value        float64
}

// InstrumentInfoRecord is the provider's open attribute set for one symbol.
// The attribute names are not fixed in advance.
type InstrumentInfoRecord struct {
	Symbol     Symbol
	Attributes map[string]any
}

// AttributeNames returns the record's attribute names in sorted order.
func (r InstrumentInfoRecord) AttributeNames() []string {
	names := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// IsReference reports whether sym is one of the given reference instruments.
func IsReference(sym Symbol, reference []Symbol) bool {
	return slices.Contains(reference, sym)
}
