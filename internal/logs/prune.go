package logs

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"mediaq/internal/logging"
)

// PruneResult lists what Prune removed and what it failed to remove.
type PruneResult struct {
	Removed []string
	Errors  []PruneError
}

// PruneError pairs a file with the error that kept it in place.
type PruneError struct {
	Path string
	Err  error
}

// Prune deletes regular files in dir matching pattern whose modification
// time is older than maxAge. Paths listed in keep are never removed. A
// non-positive maxAge disables pruning.
func Prune(dir, pattern string, maxAge time.Duration, keep []string, logger *slog.Logger) PruneResult {
	var result PruneResult
	dir = strings.TrimSpace(dir)
	if dir == "" || maxAge <= 0 {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		result.Errors = append(result.Errors, PruneError{Path: dir, Err: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, path := range matches {
		if slices.Contains(keep, path) {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil {
			result.Errors = append(result.Errors, PruneError{Path: path, Err: err})
			continue
		}
		if !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, PruneError{Path: path, Err: err})
			logging.WarnWithContext(logger, "failed to remove old log", "log_prune_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check log_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Debug("removed old log",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "log_pruned"),
		)
	}
	if len(result.Removed) > 0 {
		logger.Info("pruned old logs",
			logging.Int("removed", len(result.Removed)),
			logging.String("dir", dir),
			logging.String(logging.FieldEventType, "log_prune"),
		)
	}
	return result
}
