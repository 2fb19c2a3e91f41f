// Package database provides the PostgreSQL connection pool for the warehouse.
//
// The warehouse holds the staging tables the pipeline replaces on every run;
// it is never read back by the pipeline.
package database
