// Package pipeline runs one complete ingestion batch.
//
// A run reads the symbol list, fetches and normalizes prices, derives
// day-over-day fields, publishes the snapshot, enriches recent symbols and
// replaces the warehouse tables. Runs are stateless; every sink is fully
// replaced. Sink failures fail the run. Enrichment failures mark it partial.
package pipeline
