package daemon_test

import (
	"errors"
	"path/filepath"
	"testing"

	"mediaq/internal/config"
	"mediaq/internal/daemon"
	"mediaq/internal/job"
	"mediaq/internal/media"
	"mediaq/internal/services"
	"mediaq/internal/testsupport"
)

func TestNewJobsExpandsDirectoryInNaturalOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	src := filepath.Join(testsupport.BaseDir(cfg), "in")
	for _, name := range []string{"ep10.mkv", "ep2.mkv", "ep1.mp4", ".hidden.mkv", "notes.txt", "sub/ep3.mkv"} {
		testsupport.WriteFile(t, filepath.Join(src, name), 16)
	}

	jobs, err := daemon.NewJobs(cfg, []string{src})
	if err != nil {
		t.Fatalf("NewJobs: %v", err)
	}
	var names []string
	for _, j := range jobs {
		names = append(names, filepath.Base(j.Source))
	}
	want := []string{"ep1.mp4", "ep2.mkv", "ep10.mkv"}
	if len(names) != len(want) {
		t.Fatalf("sources = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("sources = %v, want %v", names, want)
		}
	}
	for _, j := range jobs {
		if j.Status() != job.StatusReady {
			t.Fatalf("job %s status = %s", j.ID, j.Status())
		}
	}
}

func TestNewJobsDestination(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Queue.FileType = "m4v"
	source := filepath.Join(testsupport.BaseDir(cfg), "in", "Heat (1995).mkv")
	testsupport.WriteFile(t, source, 16)

	jobs, err := daemon.NewJobs(cfg, []string{source})
	if err != nil {
		t.Fatalf("NewJobs: %v", err)
	}
	want := filepath.Join(cfg.Queue.DestinationDir, "Heat (1995).m4v")
	if got := jobs[0].Destination(); got != want {
		t.Fatalf("destination = %q, want %q", got, want)
	}

	cfg.Queue.DestinationDir = ""
	if got := daemon.Destination(cfg, source); got != filepath.Join(filepath.Dir(source), "Heat (1995).m4v") {
		t.Fatalf("destination without destination_dir = %q", got)
	}
}

func TestNewJobsAttributes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Queue.ChapterPreviews = true
	cfg.Queue.Overwrite = true
	source := filepath.Join(testsupport.BaseDir(cfg), "a.mkv")
	testsupport.WriteFile(t, source, 16)

	jobs, err := daemon.NewJobs(cfg, []string{source})
	if err != nil {
		t.Fatalf("NewJobs: %v", err)
	}
	attrs := jobs[0].Attributes()
	if attrs[job.AttrChapterPreviews] != "true" || attrs[job.AttrOverwrite] != "true" {
		t.Fatalf("attributes = %v", attrs)
	}
	if _, ok := attrs[job.AttrLargeFile]; ok {
		t.Fatalf("small file marked large: %v", attrs)
	}
	if _, ok := attrs[job.AttrForceHVC1]; ok {
		t.Fatalf("force_hvc1 set without config: %v", attrs)
	}
}

func TestNewJobsMarksLargeFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(testsupport.BaseDir(cfg), "big.mkv")
	testsupport.WriteFile(t, source, job.LargeFileThreshold+1)

	jobs, err := daemon.NewJobs(cfg, []string{source})
	if err != nil {
		t.Fatalf("NewJobs: %v", err)
	}
	if jobs[0].Attributes()[job.AttrLargeFile] != "true" {
		t.Fatalf("attributes = %v", jobs[0].Attributes())
	}
}

func TestNewJobsErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)

	if _, err := daemon.NewJobs(cfg, []string{filepath.Join(base, "missing.mkv")}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing path error = %v", err)
	}
	txt := filepath.Join(base, "notes.txt")
	testsupport.WriteFile(t, txt, 4)
	if _, err := daemon.NewJobs(cfg, []string{txt}); !errors.Is(err, daemon.ErrNothingToAdd) {
		t.Fatalf("unsupported file error = %v", err)
	}
}

func TestActionsFollowPreferenceOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithActions(config.Actions{
		ClearMetadata:      true,
		SearchMetadata:     true,
		MovieLanguage:      "eng",
		SetOutputFilename:  true,
		ImportSubtitles:    true,
		OrganizeGroups:     true,
		FixFallbacks:       true,
		ClearTrackNames:    true,
		PrettifyAudioNames: true,
		RenameChapters:     true,
		Language:           "eng",
		ColorSpace:         "bt709",
		Preset:             "kids",
		Optimize:           true,
		LibraryDir:         "/srv/library",
		AudioLanguage:      "eng",
		SubtitleLanguage:   "eng",
	}))
	cfg.Presets = []config.Preset{{Name: "Kids", Tags: map[string]string{"genre": "Family"}}}

	actions := daemon.Actions(cfg)
	want := []job.Kind{
		job.KindClearMetadata, job.KindSearchMetadata, job.KindSetOutputFilename,
		job.KindImportSubtitles, job.KindOrganizeGroups, job.KindFixFallbacks,
		job.KindClearTrackNames, job.KindPrettifyAudioNames, job.KindRenameChapters,
		job.KindSetLanguage, job.KindColorSpace, job.KindApplyPreset, job.KindOptimize,
		job.KindSendToLibrary, job.KindSelectLanguage, job.KindSelectLanguage,
	}
	if len(actions) != len(want) {
		t.Fatalf("got %d actions, want %d", len(actions), len(want))
	}
	for i, a := range actions {
		if a.Kind() != want[i] {
			t.Fatalf("action %d = %s, want %s", i, a.Kind(), want[i])
		}
	}
	if sel := actions[len(actions)-1].(*job.SelectLanguage); sel.TrackKind != media.KindSubtitle {
		t.Fatalf("last select language kind = %s", sel.TrackKind)
	}
	if preset := actions[11].(*job.ApplyPreset); preset.Name != "Kids" || preset.Tags["genre"] != "Family" {
		t.Fatalf("preset = %+v", preset)
	}
}
