// Package logs reads and prunes the daemon's per-run log files.
//
// Tail returns the last lines of a log, or the lines appended since a byte
// offset, optionally waiting for new output. Prune removes run logs older
// than the configured retention.
package logs
