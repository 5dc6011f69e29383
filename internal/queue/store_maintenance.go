package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mediaq/internal/job"
)

// Stats returns a count of stored jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[job.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[job.Status]int)
	for rows.Next() {
		var status job.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health summarizes the queue database for status output.
type Health struct {
	Path          string `json:"path"`
	SchemaVersion int    `json:"schema_version"`
	Integrity     string `json:"integrity"`
	Jobs          int    `json:"jobs"`
}

// SchemaCurrent reports whether the stored schema matches this build.
func (h Health) SchemaCurrent() bool {
	return h.SchemaVersion == schemaVersion
}

// CheckHealth reads the schema version, counts stored jobs and runs
// PRAGMA integrity_check. Only the first integrity problem is kept.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{Path: s.path}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&health.SchemaVersion); err != nil {
		return health, fmt.Errorf("read schema version: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM jobs").Scan(&health.Jobs); err != nil {
		return health, fmt.Errorf("count jobs: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, "PRAGMA integrity_check(1)")
	if err != nil {
		return health, fmt.Errorf("integrity check: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&health.Integrity); err != nil {
			return health, fmt.Errorf("integrity check: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.Integrity = strings.ToLower(strings.TrimSpace(health.Integrity))
	return health, nil
}
