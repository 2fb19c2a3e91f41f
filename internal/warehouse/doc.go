// Package warehouse replaces the enrichment tables in PostgreSQL.
//
// Each load drops and recreates its destination table inside a single
// transaction, then inserts the rows in fixed-size multi-row chunks. A failed
// load rolls back and leaves the previous table in place.
//
// Tables:
//   - institutional holders: one row per (symbol, holder)
//   - instrument info: one row per symbol, one TEXT column per attribute name
package warehouse
