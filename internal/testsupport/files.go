package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, and its parent directories, as a sparse file of
// size bytes. Sizes below one become a single byte so the file is never
// empty. Sparse files let tests cross LargeFileThreshold without writing
// gigabytes.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	size = max(size, 1)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if _, err := f.WriteAt([]byte{0x1A, 0x45, 0xDF, 0xA3}[:min(size, 4)], 0); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := f.Truncate(size); err != nil {
		t.Fatalf("size %s: %v", path, err)
	}
}
