// Package config loads, normalizes, and validates mediaq configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and checks every option the daemon and CLI consume: queue
// behaviour, the default action pipeline for new jobs, engine binaries,
// logging, and notifications.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
