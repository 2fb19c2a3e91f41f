// Package enrich fetches institutional holders and instrument info for recent
// symbols.
//
// Each symbol is an independent attempt: its holders and info are appended
// together or not at all, and a failing symbol never stops the others. The
// loop returns the collected data alongside one Failure per symbol that did
// not make it.
package enrich
