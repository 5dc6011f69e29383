package job_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"mediaq/internal/job"
	"mediaq/internal/logging"
	"mediaq/internal/media"
	"mediaq/internal/testsupport"
)

type stubProvider struct {
	results []media.Metadata
	err     error
	queries []media.Query
}

func (p *stubProvider) Search(_ context.Context, q media.Query) ([]media.Metadata, error) {
	p.queries = append(p.queries, q)
	return p.results, p.err
}

func runtimeFor(engine media.Engine) job.Runtime {
	return job.Runtime{Engine: engine, Logger: logging.NewNop()}
}

func TestProcessWritesAndRunsPostActions(t *testing.T) {
	dir := t.TempDir()
	engine := &testsupport.FakeEngine{}
	library := filepath.Join(dir, "library")
	j := testsupport.NewJob(t, dir, "movie", &job.Optimize{}, &job.SendToLibrary{Dir: library})

	var percents []float64
	err := j.Process(context.Background(), runtimeFor(engine), func(_ string, p float64) {
		percents = append(percents, p)
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := engine.Writes(); len(got) != 1 || got[0] != j.Destination() {
		t.Fatalf("writes = %v", got)
	}
	if engine.Optimized() != 1 {
		t.Fatalf("optimize calls = %d", engine.Optimized())
	}
	if _, err := os.Stat(filepath.Join(library, "movie.mp4")); err != nil {
		t.Fatalf("library copy missing: %v", err)
	}
	if j.Handle() != nil {
		t.Fatal("handle not released after Process")
	}
	if !slices.Contains(percents, 50) || !slices.Contains(percents, 100) {
		t.Fatalf("engine progress not forwarded: %v", percents)
	}
}

func TestPreActionFailureIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	engine := &testsupport.FakeEngine{}
	provider := &stubProvider{err: errors.New("provider offline")}
	j := testsupport.NewJob(t, dir, "Heat (1995)", &job.SearchMetadata{}, &job.RenameChapters{})

	rt := runtimeFor(engine)
	rt.Metadata = provider
	if err := j.Process(context.Background(), rt, nil); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(provider.queries) != 1 {
		t.Fatalf("provider queries = %d", len(provider.queries))
	}
	q := provider.queries[0]
	if q.Kind != "movie" || q.Title != "Heat" || q.Year != 1995 {
		t.Fatalf("query = %+v", q)
	}
	if len(engine.Writes()) != 1 {
		t.Fatal("write did not happen after failing pre action")
	}
}

func TestOptimizeFailureFailsJob(t *testing.T) {
	dir := t.TempDir()
	engine := &testsupport.FakeEngine{OptimizeFails: true}
	j := testsupport.NewJob(t, dir, "movie", &job.Optimize{})

	err := j.Process(context.Background(), runtimeFor(engine), nil)
	if !errors.Is(err, job.ErrOptimizationFailed) {
		t.Fatalf("error = %v, want ErrOptimizationFailed", err)
	}
	if len(engine.Writes()) != 1 {
		t.Fatal("output should have been written before optimizing")
	}
}

func TestOtherPostFailureIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	engine := &testsupport.FakeEngine{}
	library := filepath.Join(dir, "library")
	testsupport.WriteFile(t, filepath.Join(library, "movie.mp4"), 4)
	j := testsupport.NewJob(t, dir, "movie", &job.SendToLibrary{Dir: library})

	if err := j.Process(context.Background(), runtimeFor(engine), nil); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestProcessErrors(t *testing.T) {
	t.Run("source missing", func(t *testing.T) {
		j := job.New(filepath.Join(t.TempDir(), "gone.mkv"), "/tmp/out.mp4", nil, nil)
		err := j.Process(context.Background(), runtimeFor(&testsupport.FakeEngine{}), nil)
		if !errors.Is(err, job.ErrSourceNotFound) {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("destination exists", func(t *testing.T) {
		dir := t.TempDir()
		j := testsupport.NewJob(t, dir, "movie")
		testsupport.WriteFile(t, j.Destination(), 1)
		err := j.Process(context.Background(), runtimeFor(&testsupport.FakeEngine{}), nil)
		if !errors.Is(err, job.ErrDestinationExists) {
			t.Fatalf("error = %v", err)
		}
		if job.Suggestion(err) == "" {
			t.Fatal("expected a suggestion for destination exists")
		}
	})

	t.Run("overwrite allowed", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "movie.mkv")
		testsupport.WriteFile(t, src, 1)
		dest := filepath.Join(dir, "movie.mp4")
		testsupport.WriteFile(t, dest, 1)
		j := job.New(src, dest, nil, map[string]string{job.AttrOverwrite: "true"})
		if err := j.Process(context.Background(), runtimeFor(&testsupport.FakeEngine{}), nil); err != nil {
			t.Fatalf("Process: %v", err)
		}
	})

	t.Run("out of disk space", func(t *testing.T) {
		dir := t.TempDir()
		engine := &testsupport.FakeEngine{DataSize: 1 << 30}
		j := testsupport.NewJob(t, dir, "movie")
		rt := runtimeFor(engine)
		rt.FreeSpace = func(context.Context, string) (uint64, error) { return 1024, nil }
		err := j.Process(context.Background(), rt, nil)
		if !errors.Is(err, job.ErrOutOfDiskSpace) {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("disk query failure skips check", func(t *testing.T) {
		dir := t.TempDir()
		engine := &testsupport.FakeEngine{DataSize: 1 << 30}
		j := testsupport.NewJob(t, dir, "movie")
		rt := runtimeFor(engine)
		rt.FreeSpace = func(context.Context, string) (uint64, error) { return 0, errors.New("statfs failed") }
		if err := j.Process(context.Background(), rt, nil); err != nil {
			t.Fatalf("Process: %v", err)
		}
	})

	t.Run("engine write failure", func(t *testing.T) {
		dir := t.TempDir()
		engine := &testsupport.FakeEngine{WriteErr: errors.New("muxer exploded")}
		j := testsupport.NewJob(t, dir, "movie")
		err := j.Process(context.Background(), runtimeFor(engine), nil)
		if !errors.Is(err, job.ErrEngineWrite) {
			t.Fatalf("error = %v", err)
		}
	})
}

func TestProcessUpdatesInPlaceWhenDestinationIsSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "movie.mp4")
	testsupport.WriteFile(t, src, 8)
	engine := &testsupport.FakeEngine{}
	j := job.New(src, src, nil, nil)

	if err := j.Process(context.Background(), runtimeFor(engine), nil); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := engine.InPlace(); len(got) != 1 || got[0] != src {
		t.Fatalf("in-place updates = %v", got)
	}
	if len(engine.Writes()) != 0 {
		t.Fatal("unexpected full write")
	}
}

func TestCancelledContextSkipsWriteAndPost(t *testing.T) {
	dir := t.TempDir()
	engine := &testsupport.FakeEngine{}
	j := testsupport.NewJob(t, dir, "movie", &job.Optimize{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Process(ctx, runtimeFor(engine), nil); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(engine.Writes()) != 0 || engine.Optimized() != 0 {
		t.Fatalf("cancelled job wrote %v and optimized %d times", engine.Writes(), engine.Optimized())
	}
}

func TestSetOutputFilenameRewritesDestination(t *testing.T) {
	dir := t.TempDir()
	engine := &testsupport.FakeEngine{Metadata: media.Metadata{
		media.TagShow:    "The Office",
		media.TagSeason:  "2",
		media.TagEpisode: "4",
		media.TagTitle:   "The Fire: Part 1",
	}}
	j := testsupport.NewJob(t, dir, "office.s02e04", &job.SetOutputFilename{})

	if err := j.Process(context.Background(), runtimeFor(engine), nil); err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := filepath.Join(dir, "out", "The Office S02E04 - The Fire- Part 1.mp4")
	if j.Destination() != want {
		t.Fatalf("destination = %q, want %q", j.Destination(), want)
	}
}
