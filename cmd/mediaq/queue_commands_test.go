package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"mediaq/internal/ipc"
)

func TestAddListAndRunQueue(t *testing.T) {
	env := setupCLITestEnv(t)
	a := env.source(t, "Episode 2.mkv")
	b := env.source(t, "Episode 10.mkv")

	out, _, err := runCLI(t, []string{"add", b, a}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Added 2 job(s)")

	out, _, err = runCLI(t, []string{"queue", "list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	var jobs []ipc.JobInfo
	if err := json.Unmarshal([]byte(out), &jobs); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(jobs) != 2 || jobs[0].Source != a || jobs[1].Source != b {
		t.Fatalf("jobs = %+v", jobs)
	}

	out, _, err = runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Episode 2.mkv")
	requireContains(t, out, "ready")

	out, _, err = runCLI(t, []string{"start", "--wait"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start --wait: %v", err)
	}
	requireContains(t, out, "2 succeeded, 0 failed")
	if got := len(env.engine.Writes()); got != 2 {
		t.Fatalf("writes = %d", got)
	}

	out, _, err = runCLI(t, []string{"events", "-n", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	requireContains(t, out, "completed 2 succeeded, 0 failed")

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 2 completed job(s)")
}

func TestQueueMoveRemoveByPrefix(t *testing.T) {
	env := setupCLITestEnv(t)
	a := env.source(t, "a.mkv")
	b := env.source(t, "b.mkv")
	if _, _, err := runCLI(t, []string{"add", a, b}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("add: %v", err)
	}

	if out, _, err := runCLI(t, []string{"queue", "move", "2", "1"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("queue move: %v", err)
	} else {
		requireContains(t, out, "Moved job #2 to #1")
	}
	list := env.daemon.List()
	if len(list) != 2 || list[0].Source != b {
		t.Fatalf("after move = %+v", list)
	}

	if _, _, err := runCLI(t, []string{"queue", "remove", shortID(list[0].ID)}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	list = env.daemon.List()
	if len(list) != 1 || list[0].Source != a {
		t.Fatalf("after remove = %+v", list)
	}

	if _, _, err := runCLI(t, []string{"queue", "remove", "zzzz"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected unknown id to fail")
	}
	if _, _, err := runCLI(t, []string{"queue", "move", "0", "1"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected position 0 to be rejected")
	}
}

func TestQueueSetDestination(t *testing.T) {
	env := setupCLITestEnv(t)
	a := env.source(t, "a.mkv")
	if _, _, err := runCLI(t, []string{"add", a}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("add: %v", err)
	}
	id := env.daemon.List()[0].ID
	dest := filepath.Join(t.TempDir(), "renamed.mp4")

	out, _, err := runCLI(t, []string{"queue", "set-destination", shortID(id), dest}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue set-destination: %v", err)
	}
	requireContains(t, out, "Destination set to "+dest)
	if got := env.daemon.List()[0].Destination; got != dest {
		t.Fatalf("destination = %q, want %q", got, dest)
	}

	if _, _, err := runCLI(t, []string{"start", "--wait"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("start --wait: %v", err)
	}
	_, _, err = runCLI(t, []string{"queue", "set-destination", shortID(id), dest}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected completed job destination to be rejected")
	}
	requireContains(t, err.Error(), "no longer editable")
}

func TestCommandsWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := env.socketPath + ".missing"

	_, _, err := runCLI(t, []string{"queue", "list"}, missing, env.configPath)
	if err == nil {
		t.Fatal("expected dial failure")
	}
	requireContains(t, err.Error(), "mediaq daemon start")

	out, _, err := runCLI(t, []string{"status"}, missing, env.configPath)
	if err != nil {
		t.Fatalf("offline status: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, "offline")
}

func TestParsePosition(t *testing.T) {
	if idx, err := parsePosition(" 3 "); err != nil || idx != 2 {
		t.Fatalf("parsePosition(3) = %d, %v", idx, err)
	}
	for _, bad := range []string{"0", "-1", "x", ""} {
		if _, err := parsePosition(bad); err == nil {
			t.Fatalf("parsePosition(%q) accepted", bad)
		}
	}
}
