package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediaq/internal/events"
	"mediaq/internal/ipc"
)

func TestFormatReportRowColorize(t *testing.T) {
	plain := formatReportRow("process", toneGood, "running", false)
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("plain row has escape codes: %q", plain)
	}
	if !strings.HasSuffix(plain, "[ok] running") {
		t.Fatalf("plain row = %q", plain)
	}
	colored := formatReportRow("last error", toneBad, "", true)
	if !strings.Contains(colored, ansiRed+"[xx]"+ansiReset) {
		t.Fatalf("colored row = %q", colored)
	}
	if neutral := formatReportRow("lock", toneNeutral, "/x", true); strings.Contains(neutral, "\x1b[") {
		t.Fatalf("neutral row = %q", neutral)
	}
}

func TestRenderStatus(t *testing.T) {
	out := renderStatus(&ipc.StatusResponse{
		Running:   true,
		PID:       42,
		State:     "working",
		Total:     3,
		Counts:    map[string]int{"ready": 1, "working": 1, "failed": 1, "completed": 0},
		Current:   &ipc.JobInfo{Index: 1, Source: "/in/Heat.mkv", Progress: "Writing"},
		Failed:    1,
		LastError: "disk full",
		Database:  &ipc.DatabaseInfo{SchemaVersion: 1, SchemaCurrent: true, Integrity: "ok", StoredJobs: 3},
		Checks:    []ipc.CheckResult{{Name: "ffmpeg", Passed: false, Detail: "not found"}},
	}, false)

	for _, want := range []string{
		"[ok] running (pid 42)",
		"[ok] schema v1, integrity ok, 3 stored",
		"[ok] #2 Heat.mkv (Writing)",
		"3 total (failed 1, ready 1, working 1)",
		"[!!] 0 succeeded, 1 failed",
		"[xx] disk full",
		"[xx] not found",
		"Dependencies",
	} {
		requireContains(t, out, want)
	}
}

func TestRenderStatusFlagsDatabaseProblems(t *testing.T) {
	out := renderStatus(&ipc.StatusResponse{
		State:    "offline",
		Database: &ipc.DatabaseInfo{SchemaVersion: 7, Integrity: "row 3 missing from index"},
	}, false)
	requireContains(t, out, "[!!] offline")
	requireContains(t, out, "[xx] schema v7 (unsupported), integrity row 3 missing from index")

	out = renderStatus(&ipc.StatusResponse{Database: &ipc.DatabaseInfo{Error: "database is locked"}}, false)
	requireContains(t, out, "[!!] check failed: database is locked")
}

func TestRenderJobTable(t *testing.T) {
	out := renderJobTable([]ipc.JobInfo{
		{ID: "0123456789", Index: 0, Source: "/in/a.mkv", Status: "failed", ErrorMessage: "boom"},
		{ID: "abcdef", Index: 1, Source: "/in/b.mkv", Status: "ready"},
	}, false)
	for _, want := range []string{"SOURCE", "01234567", "a.mkv", "boom", "abcdef", "ready"} {
		requireContains(t, out, want)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("plain table has escape codes: %q", out)
	}
	colored := renderJobTable([]ipc.JobInfo{{ID: "x", Source: "/in/a.mkv", Status: "failed"}}, true)
	requireContains(t, colored, "\x1b[31m")
}

func TestFormatCountsEmpty(t *testing.T) {
	if got := formatCounts(0, nil); got != "empty" {
		t.Fatalf("formatCounts = %q", got)
	}
}

func TestBuildQueueListRowsPrefersError(t *testing.T) {
	rows := buildQueueListRows([]ipc.JobInfo{
		{ID: "0123456789", Index: 0, Source: "/in/a.mkv", Status: "failed", Progress: "Writing", ErrorMessage: "boom"},
	})
	if len(rows) != 1 || rows[0][0] != "1" || rows[0][1] != "01234567" || rows[0][4] != "boom" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestLogsCommandPrintsTail(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.cfg.Paths.LogDir, "mediaq.log")
	if err := os.WriteFile(path, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "second\nthird\n" {
		t.Fatalf("logs output = %q", out)
	}
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	tests := []struct {
		evt  events.Event
		want string
	}{
		{events.Working("0123456789", 1, 42, "Writing"), "working #2  42% Writing"},
		{events.Failed("0123456789", 0, errors.New("disk full")), "failed #1 01234567: disk full"},
		{events.Cancelled("abc", 2), "cancelled #3 abc"},
		{events.Completed(3, 1), "completed 3 succeeded, 1 failed"},
	}
	for _, tc := range tests {
		tc.evt.Timestamp = ts
		got := formatEvent(tc.evt)
		if got != "12:00:00 "+tc.want {
			t.Fatalf("formatEvent(%s) = %q", tc.evt.Type, got)
		}
	}
}
