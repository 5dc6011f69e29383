package testsupport

import (
	"path/filepath"
	"testing"

	"mediaq/internal/job"
)

// NewJob writes a small source file under dir and returns a ready job that
// converts it to <name>.mp4 in dir/out.
func NewJob(t testing.TB, dir, name string, actions ...job.Action) *job.Job {
	t.Helper()

	source := filepath.Join(dir, name+".mkv")
	WriteFile(t, source, 1024)
	dest := filepath.Join(dir, "out", name+".mp4")
	return job.New(source, dest, actions, nil)
}
