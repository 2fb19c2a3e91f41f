// Package normalize flattens the fetcher's nested per-symbol series into
// sorted, de-duplicated price rows.
package normalize
