package logs_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"mediaq/internal/logging"
	"mediaq/internal/logs"
)

func TestPruneRemovesOldRunLogs(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-30 * 24 * time.Hour)
	touch := func(name string, mtime time.Time) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, mtime, mtime); err != nil {
			t.Fatal(err)
		}
		return p
	}
	stale := touch("mediaq-20240101T000000.000Z.log", old)
	current := touch("mediaq-20240102T000000.000Z.log", old)
	fresh := touch("mediaq-20990101T000000.000Z.log", time.Now())
	other := touch("notes.txt", old)

	result := logs.Prune(dir, "mediaq-*.log", 14*24*time.Hour, []string{current}, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v", result.Errors)
	}
	if !slices.Equal(result.Removed, []string{stale}) {
		t.Fatalf("removed = %v", result.Removed)
	}
	for _, p := range []string{current, fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("%s should remain: %v", p, err)
		}
	}
}

func TestPruneDisabled(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "mediaq-1.log")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	_ = os.Chtimes(p, old, old)
	if result := logs.Prune(dir, "mediaq-*.log", 0, nil, nil); len(result.Removed) != 0 {
		t.Fatalf("removed = %v", result.Removed)
	}
}
