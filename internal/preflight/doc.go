// Package preflight provides readiness checks for the filesystem paths and
// external binaries mediaq depends on.
//
// The daemon runs RunAll at startup and logs failures; the CLI "mediaq status"
// command renders the same results. Checks for optional features are skipped
// when the feature is not configured.
package preflight
