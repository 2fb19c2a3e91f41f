// Package snapshot serializes derived price records to CSV and publishes them
// to the blob store under a fixed name, replacing the previous snapshot.
package snapshot
