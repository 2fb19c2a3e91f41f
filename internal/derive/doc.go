// Package derive computes day-over-day fields for normalized price rows.
//
// Every symbol is processed as its own group. The first row of a group has no
// prior day; it and any row whose prior close is exactly zero use their own
// close as previous close, which yields a zero percent change. Rows on the
// anchor date exist only to seed the first real day and are removed.
package derive
