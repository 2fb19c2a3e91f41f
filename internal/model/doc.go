// Package model defines shared data types used across the daily price pipeline.
//
// Conventions:
//   - Dates: civil.Date (calendar day, no time-of-day, no zone)
//   - Prices: float64 in the instrument's quote currency
//   - Symbols: provider ticker strings (e.g. "AAPL", "GC=F", "^GSPC")
package model
