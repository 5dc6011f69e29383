// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, the request/response DTOs, and the
// conversion from job records to their wire form. Keep the DTOs stable:
// scripts drive the queue through these calls.
package ipc
