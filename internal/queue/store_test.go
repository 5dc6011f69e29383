package queue_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	_ "modernc.org/sqlite"

	"mediaq/internal/job"
	"mediaq/internal/logging"
	"mediaq/internal/media"
	"mediaq/internal/queue"
	"mediaq/internal/testsupport"
)

func everyAction() []job.Action {
	return []job.Action{
		&job.ClearMetadata{},
		&job.SearchMetadata{MovieLanguage: "eng", TVLanguage: "eng", MovieProvider: "nfo", TVProvider: "nfo"},
		&job.SetOutputFilename{},
		&job.ImportSubtitles{},
		&job.OrganizeGroups{},
		&job.FixFallbacks{},
		&job.ClearTrackNames{},
		&job.PrettifyAudioNames{},
		&job.RenameChapters{},
		&job.SetLanguage{Language: "deu"},
		&job.ColorSpace{Tag: "bt709"},
		&job.ApplyPreset{Name: "Kids", Tags: map[string]string{"rating": "G"}},
		&job.SelectLanguage{TrackKind: media.KindSubtitle, Language: "eng"},
		&job.Optimize{},
		&job.SendToLibrary{Dir: "/srv/media"},
	}
}

func TestSaveAndReadRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := job.New("/in/a.mkv", "/out/a.mp4", everyAction(), map[string]string{job.AttrLargeFile: "true"})
	second := job.New("/in/b.mkv", "/out/b.mp4", nil, nil)
	failed := job.New("/in/c.mkv", "/out/c.mp4", []job.Action{&job.Optimize{}}, nil)
	if err := failed.MarkWorking(); err != nil {
		t.Fatal(err)
	}
	if err := failed.MarkFailed(errors.New("disk full")); err != nil {
		t.Fatal(err)
	}
	want := []job.Record{second.Record(), first.Record(), failed.Record()}

	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("read %d records, want %d", len(got), len(want))
	}
	for i := range want {
		w, g := want[i], got[i]
		if g.ID != w.ID || g.Source != w.Source || g.Destination != w.Destination || g.Status != w.Status {
			t.Fatalf("record %d = %+v, want %+v", i, g, w)
		}
		if g.ErrorMessage != w.ErrorMessage {
			t.Fatalf("record %d error = %q, want %q", i, g.ErrorMessage, w.ErrorMessage)
		}
		if !g.CreatedAt.Equal(w.CreatedAt) {
			t.Fatalf("record %d created_at = %v, want %v", i, g.CreatedAt, w.CreatedAt)
		}
		if len(g.Actions) != len(w.Actions) || (len(w.Actions) > 0 && !reflect.DeepEqual(g.Actions, w.Actions)) {
			t.Fatalf("record %d actions = %#v, want %#v", i, g.Actions, w.Actions)
		}
		if len(w.Attributes) > 0 && !reflect.DeepEqual(g.Attributes, w.Attributes) {
			t.Fatalf("record %d attributes = %v, want %v", i, g.Attributes, w.Attributes)
		}
	}

	// A second save replaces rather than appends.
	if err := store.Save(ctx, want[:1]); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = store.Read(ctx)
	if err != nil || len(got) != 1 || got[0].ID != second.ID {
		t.Fatalf("after resave: %v, %v", got, err)
	}
}

func TestLoadCoercesWorkingToFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	working := job.New("/in/a.mkv", "/out/a.mp4", nil, nil)
	if err := working.MarkWorking(); err != nil {
		t.Fatal(err)
	}
	ready := job.New("/in/b.mkv", "/out/b.mp4", nil, nil)
	if err := store.Save(ctx, []job.Record{working.Record(), ready.Record()}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := store.Load(ctx)
	if len(loaded) != 2 {
		t.Fatalf("loaded %d jobs", len(loaded))
	}
	for _, j := range loaded {
		if j.Status() == job.StatusWorking {
			t.Fatalf("job %s loaded as working", j.ID)
		}
	}
	if loaded[0].Status() != job.StatusFailed || loaded[0].ErrorMessage() != queue.InterruptedMessage {
		t.Fatalf("interrupted job = %s %q", loaded[0].Status(), loaded[0].ErrorMessage())
	}
	if loaded[1].Status() != job.StatusReady {
		t.Fatalf("ready job = %s", loaded[1].Status())
	}
}

func TestOpenCorruptFileStartsEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.StorePath(), bytes.Repeat([]byte("not a sqlite database "), 1024), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := queue.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open on corrupt file: %v", err)
	}
	defer store.Close()

	if jobs := store.Load(context.Background()); len(jobs) != 0 {
		t.Fatalf("loaded %d jobs from corrupt file", len(jobs))
	}
	matches, _ := filepath.Glob(cfg.StorePath() + ".corrupt-*")
	if len(matches) != 1 {
		t.Fatalf("quarantined files = %v", matches)
	}
}

func TestOpenQuarantinesForeignSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	raw, err := sql.Open("sqlite", cfg.StorePath())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(`CREATE TABLE jobs (id TEXT); PRAGMA user_version = 7`); err != nil {
		t.Fatalf("seed foreign schema: %v", err)
	}
	raw.Close()

	store, err := queue.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open on foreign schema: %v", err)
	}
	defer store.Close()
	if jobs := store.Load(context.Background()); len(jobs) != 0 {
		t.Fatalf("loaded %d jobs", len(jobs))
	}
	matches, _ := filepath.Glob(cfg.StorePath() + ".corrupt-*")
	if len(matches) != 1 {
		t.Fatalf("quarantined files = %v", matches)
	}
}

func TestLoadWithUndecodableRecordStartsEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	good := job.New("/in/a.mkv", "/out/a.mp4", nil, nil)
	if err := store.Save(ctx, []job.Record{good.Record()}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := sql.Open("sqlite", cfg.StorePath())
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()
	if _, err := raw.ExecContext(ctx, `INSERT INTO jobs (id, position, source_path, destination_path, status, actions_json, created_at, updated_at)
		VALUES ('bad', 1, '/in/b.mkv', '/out/b.mp4', 'ready', '[{"kind":"teleport"}]', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("insert bad row: %v", err)
	}

	if _, err := store.Read(ctx); !errors.Is(err, job.ErrDecode) {
		t.Fatalf("Read error = %v, want ErrDecode", err)
	}
	if jobs := store.Load(ctx); len(jobs) != 0 {
		t.Fatalf("Load returned %d jobs, want empty", len(jobs))
	}
	matches, _ := filepath.Glob(cfg.StorePath() + ".unreadable-*")
	if len(matches) != 1 {
		t.Fatalf("backup files = %v", matches)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	done := job.New("/in/a.mkv", "/out/a.mp4", nil, nil)
	_ = done.MarkWorking()
	_ = done.MarkCompleted()
	records := []job.Record{
		done.Record(),
		job.New("/in/b.mkv", "/out/b.mp4", nil, nil).Record(),
		job.New("/in/c.mkv", "/out/c.mp4", nil, nil).Record(),
	}
	if err := store.Save(ctx, records); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[job.StatusReady] != 2 || stats[job.StatusCompleted] != 1 {
		t.Fatalf("stats = %v", stats)
	}

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.SchemaCurrent() || health.Integrity != "ok" || health.Jobs != 3 || health.SchemaVersion != 1 || health.Path != store.Path() {
		t.Fatalf("health = %+v", health)
	}
}

func TestBackupWritesCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.Save(ctx, []job.Record{job.New("/in/a.mkv", "/out/a.mp4", nil, nil).Record()}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	dest := filepath.Join(testsupport.BaseDir(cfg), "backup", "queue.db")
	if err := store.Backup(ctx, dest); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	copyStore, err := queue.OpenPath(dest, logging.NewNop())
	if err != nil {
		t.Fatalf("OpenPath backup: %v", err)
	}
	defer copyStore.Close()
	records, err := copyStore.Read(ctx)
	if err != nil || len(records) != 1 {
		t.Fatalf("backup records = %v, %v", records, err)
	}
}
