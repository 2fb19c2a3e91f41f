// Package scheduler triggers pipeline runs on a cron schedule.
//
// The Scheduler:
//   - Parses a standard five-field cron expression (or a descriptor such as @daily)
//   - Runs the pipeline at each activation with a bounded run timeout
//   - Skips an activation while the previous run is still active
//   - Logs every run's status and duration
package scheduler
