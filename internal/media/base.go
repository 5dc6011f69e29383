package media

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Base holds the mutable state shared by Handle implementations.
type Base struct {
	mu        sync.Mutex
	path      string
	onDisk    bool
	metadata  Metadata
	tracks    []Track
	chapters  []Chapter
	dataSize  int64
	progress  func(float64)
	cancelled atomic.Bool
	cancelFns []func()
}

// NewBase builds a handle state for path. onDisk reports whether path is an
// existing container that supports in-place updates.
func NewBase(path string, onDisk bool, md Metadata, tracks []Track, chapters []Chapter, dataSize int64) *Base {
	return &Base{
		path:     path,
		onDisk:   onDisk,
		metadata: md.Clone(),
		tracks:   slices.Clone(tracks),
		chapters: slices.Clone(chapters),
		dataSize: dataSize,
	}
}

func (b *Base) Path() string { return b.path }

func (b *Base) HasFileRepresentation() bool { return b.onDisk }

func (b *Base) Metadata() Metadata {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metadata.Clone()
}

func (b *Base) SetMetadata(md Metadata) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metadata = md.Clone()
}

func (b *Base) MergeMetadata(md Metadata) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.metadata == nil {
		b.metadata = Metadata{}
	}
	b.metadata.Merge(md)
}

func (b *Base) Tracks() []Track {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.tracks)
}

func (b *Base) UpdateTrack(t Track) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tracks {
		if b.tracks[i].ID == t.ID {
			b.tracks[i] = t
			return nil
		}
	}
	return fmt.Errorf("track %d not found", t.ID)
}

func (b *Base) AddTrack(t Track) Track {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := 1
	for _, existing := range b.tracks {
		if existing.ID >= next {
			next = existing.ID + 1
		}
	}
	t.ID = next
	b.tracks = append(b.tracks, t)
	return t
}

func (b *Base) Chapters() []Chapter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.chapters)
}

func (b *Base) SetChapters(chapters []Chapter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chapters = slices.Clone(chapters)
}

func (b *Base) DataSize() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dataSize
}

// SetDataSize updates the expected output size, e.g. after tracks are added.
func (b *Base) SetDataSize(size int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dataSize = size
}

func (b *Base) SetProgressHandler(fn func(float64)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress = fn
}

// ReportProgress forwards percent to the registered progress handler.
func (b *Base) ReportProgress(percent float64) {
	b.mu.Lock()
	fn := b.progress
	b.mu.Unlock()
	if fn != nil {
		fn(percent)
	}
}

// OnCancel registers fn to run when Cancel is called. If the handle is
// already cancelled fn runs immediately. The returned func unregisters it.
func (b *Base) OnCancel(fn func()) (unregister func()) {
	b.mu.Lock()
	if b.cancelled.Load() {
		b.mu.Unlock()
		fn()
		return func() {}
	}
	idx := len(b.cancelFns)
	b.cancelFns = append(b.cancelFns, fn)
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.cancelFns) {
			b.cancelFns[idx] = nil
		}
	}
}

func (b *Base) Cancel() {
	b.mu.Lock()
	b.cancelled.Store(true)
	fns := b.cancelFns
	b.cancelFns = nil
	b.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

func (b *Base) Cancelled() bool { return b.cancelled.Load() }

func (b *Base) Close() error { return nil }

// TracksOfKind filters tracks by kind, preserving order.
func TracksOfKind(tracks []Track, kind Kind) []Track {
	var out []Track
	for _, t := range tracks {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}
