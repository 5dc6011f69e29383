package daemonctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediaq/internal/job"
	"mediaq/internal/testsupport"
)

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)
	records := []job.Record{
		job.New("/in/a.mkv", "/out/a.mp4", nil, nil).Record(),
		job.New("/in/b.mkv", "/out/b.mp4", nil, nil).Record(),
	}
	if err := store.Save(context.Background(), records); err != nil {
		t.Fatal(err)
	}

	resp, err := BuildStatusSnapshot(context.Background(), cfg.Paths.Socket, cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if resp.Running || resp.State != "offline" {
		t.Fatalf("status = %+v", resp)
	}
	if resp.Total != 2 || resp.Counts[string(job.StatusReady)] != 2 {
		t.Fatalf("counts = %v total %d", resp.Counts, resp.Total)
	}
	if len(resp.Checks) == 0 {
		t.Fatal("expected preflight checks in offline status")
	}
	if resp.Database == nil || !resp.Database.Healthy() || resp.Database.StoredJobs != 2 {
		t.Fatalf("database = %+v", resp.Database)
	}
}

func TestShutdownWithoutDaemon(t *testing.T) {
	dir := t.TempDir()
	_, err := Shutdown(filepath.Join(dir, "mediaq.sock"), filepath.Join(dir, "mediaq.pid"), time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("Shutdown error = %v", err)
	}
}

func TestShutdownRejectsBadPIDFile(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "mediaq.pid")
	if err := os.WriteFile(pidPath, []byte("garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Shutdown(filepath.Join(dir, "mediaq.sock"), pidPath, time.Second); err == nil {
		t.Fatal("expected error for unparsable pid file")
	}
}

func TestWaitForShutdownWhenSocketMissing(t *testing.T) {
	if err := WaitForShutdown(filepath.Join(t.TempDir(), "missing.sock"), time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
}
