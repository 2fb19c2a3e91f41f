// Package fetch retrieves daily price history for a list of symbols.
//
// Symbols are fetched in parallel with a bounded number of in-flight requests.
// A symbol that fails is recorded in the Report and skipped; the bulk fetch only
// fails when no symbol returned data.
package fetch
