// Package server exposes the pipeline over HTTP.
//
// Endpoints:
//   - /run triggers one run and returns its Result as JSON
//   - /health reports warehouse connectivity and the last run
//   - /runs lists recent runs from the history store
package server
