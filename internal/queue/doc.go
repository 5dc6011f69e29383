// Package queue persists the job collection in SQLite.
//
// The Store is a checkpoint sink: Save replaces the whole ordered collection
// in one transaction and Load returns it in position order. Load is tolerant
// by contract. Any read or decode failure is logged, the database is backed
// up next to itself, and the caller starts with an empty queue. Jobs that were
// working when the process died come back failed with the message
// "interrupted".
//
// A file that is not a SQLite database, or carries another schema version, is
// renamed to queue.db.corrupt-<unix> on Open and a fresh database is created.
// Schema changes bump schemaVersion in schema.go.
package queue
