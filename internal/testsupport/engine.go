package testsupport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"mediaq/internal/media"
)

// FakeEngine is an in-memory media.Engine. Write creates a small file at the
// destination and reports progress 50 then 100.
type FakeEngine struct {
	mu sync.Mutex

	// Tracks, Metadata and Chapters seed every opened handle.
	Tracks   []media.Track
	Metadata media.Metadata
	Chapters []media.Chapter
	DataSize int64

	OpenErr       error
	WriteErr      error
	OptimizeFails bool
	// FailSources makes Write fail for the listed source paths.
	FailSources map[string]error
	// Block, when non-nil, holds every Write until it is closed, the handle
	// is cancelled, or ctx ends.
	Block chan struct{}
	// Started receives the source path of each Write, if non-nil.
	Started chan string

	opened    []string
	writes    []string
	inPlace   []string
	optimized int
	live      int
	maxLive   int
}

type fakeHandle struct {
	*media.Base
}

// Open returns a handle seeded from the engine's fields.
func (f *FakeEngine) Open(_ context.Context, path string) (media.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.opened = append(f.opened, path)
	md := f.Metadata.Clone()
	return &fakeHandle{Base: media.NewBase(path, true, md, f.Tracks, f.Chapters, f.DataSize)}, nil
}

func (f *FakeEngine) Write(ctx context.Context, h media.Handle, dest string, _ map[string]string) error {
	f.mu.Lock()
	err := f.WriteErr
	if ferr, ok := f.FailSources[h.Path()]; ok {
		err = ferr
	}
	block := f.Block
	started := f.Started
	f.live++
	f.maxLive = max(f.maxLive, f.live)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.live--
		f.mu.Unlock()
	}()

	if started != nil {
		started <- h.Path()
	}
	fh := h.(*fakeHandle)
	if block != nil {
		cancelled := make(chan struct{})
		var once sync.Once
		unregister := fh.OnCancel(func() { once.Do(func() { close(cancelled) }) })
		defer unregister()
		select {
		case <-block:
		case <-cancelled:
			return errors.New("write cancelled")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	fh.ReportProgress(50)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dest, []byte("mediaq"), 0o644); err != nil {
		return err
	}
	fh.ReportProgress(100)

	f.mu.Lock()
	f.writes = append(f.writes, dest)
	f.mu.Unlock()
	return nil
}

func (f *FakeEngine) UpdateInPlace(_ context.Context, h media.Handle, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.inPlace = append(f.inPlace, h.Path())
	return nil
}

func (f *FakeEngine) Optimize(context.Context, media.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.optimized++
	return !f.OptimizeFails
}

// Opened lists the paths passed to Open.
func (f *FakeEngine) Opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.opened)
}

// Writes lists the destinations successfully written.
func (f *FakeEngine) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.writes)
}

// InPlace lists the paths updated in place.
func (f *FakeEngine) InPlace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.inPlace)
}

// Optimized counts Optimize calls.
func (f *FakeEngine) Optimized() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.optimized
}

// MaxConcurrentWrites is the highest number of overlapping Write calls.
func (f *FakeEngine) MaxConcurrentWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxLive
}
