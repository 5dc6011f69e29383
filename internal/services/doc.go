// Package services defines shared utilities consumed by the queue engine,
// the daemon, and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so daemon-level failures
//     (configuration, external tools, transient I/O) classify consistently.
//
// Job-level failures use the taxonomy in package job; these markers cover
// everything around the queue.
package services
