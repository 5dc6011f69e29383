// Package media defines the contract between the queue and whatever engine
// reads, rewrites, and transcodes media containers.
//
// A Handle is an open media file: container metadata tags, tracks, chapters,
// progress reporting and cooperative cancellation. An Engine opens handles and
// writes them out, either to a new destination or in place, and can optimize
// the written file for streaming. MetadataProvider is consulted by the
// metadata search action only.
//
// Base implements the in-memory, lock-guarded part of a Handle so concrete
// engines (ffmpeg in production, fakes in tests) only add I/O.
package media
