// Package yogrt reports the wall-clock time left in a job allocation.
//
// The remaining time comes from a pluggable backend (see package backend), but the
// backend is only asked when the polling policy says the cached estimate is due:
// every IntervalFar seconds while the deadline is far away, every IntervalNear
// seconds once the projected remaining time falls within NearThreshold, and
// sooner (after the failed backoff) when the previous query failed. Between
// queries, and after failed queries, the cached estimate is counted down with the
// local clock.
//
// Only the authoritative task (rank 0) refreshes; other ranks get NotApplicable.
// Without a backend every task gets Unbounded.
//
// The package-level functions operate on a process-wide Client configured from
// YOGRT_* environment variables. Import yogrt/backends/all (or individual
// backends) to make backends available to it.
package yogrt
