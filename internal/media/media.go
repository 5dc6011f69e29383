package media

import (
	"context"
	"maps"
	"strings"
	"time"
)

// Kind classifies a track.
type Kind string

const (
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindSubtitle Kind = "subtitle"
)

// Metadata tag keys understood by the engines. Values follow the mp4 muxer
// naming so they can be passed through to ffmpeg unchanged.
const (
	TagTitle       = "title"
	TagDate        = "date"
	TagGenre       = "genre"
	TagDescription = "description"
	TagShow        = "show"
	TagSeason      = "season_number"
	TagEpisode     = "episode_sort"
	TagEpisodeID   = "episode_id"
	TagMediaType   = "media_type"
	TagHDVideo     = "hd_video"
	TagComment     = "comment"
)

// Option keys passed to Engine.Write and Engine.UpdateInPlace.
const (
	OptionLargeFile       = "large_file"
	OptionChapterPreviews = "chapter_previews"
	OptionForceHVC1       = "force_hvc1"
)

// Metadata is a container-level tag set.
type Metadata map[string]string

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return maps.Clone(m)
}

// Merge copies every non-empty value from other into m, overwriting.
func (m Metadata) Merge(other Metadata) {
	for key, value := range other {
		if strings.TrimSpace(value) == "" {
			continue
		}
		m[key] = value
	}
}

// Track describes one stream of a media container. IDs are stable for the
// lifetime of a handle and start at 1; Fallback references another track ID
// with 0 meaning none.
type Track struct {
	ID             int    `json:"id"`
	Kind           Kind   `json:"kind"`
	Codec          string `json:"codec"`
	Name           string `json:"name,omitempty"`
	Language       string `json:"language,omitempty"`
	Enabled        bool   `json:"enabled"`
	AlternateGroup int    `json:"alternate_group,omitempty"`
	Fallback       int    `json:"fallback,omitempty"`
	Channels       int    `json:"channels,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	ColorTag       string `json:"color_tag,omitempty"`
	// SourcePath is set for tracks imported from a file other than the handle's
	// own container, such as sidecar subtitles.
	SourcePath string `json:"source_path,omitempty"`
}

// Chapter is a named chapter marker.
type Chapter struct {
	Start time.Duration `json:"start"`
	Title string        `json:"title"`
}

// Handle is an open media file owned by an Engine.
type Handle interface {
	Path() string
	// HasFileRepresentation reports whether the handle is backed by an
	// existing container on disk that can be updated in place.
	HasFileRepresentation() bool
	Metadata() Metadata
	SetMetadata(Metadata)
	MergeMetadata(Metadata)
	Tracks() []Track
	UpdateTrack(Track) error
	AddTrack(Track) Track
	Chapters() []Chapter
	SetChapters([]Chapter)
	// DataSize is the number of bytes a write is expected to produce.
	DataSize() int64
	SetProgressHandler(func(percent float64))
	// Cancel asks any in-flight engine call on this handle to abort. It must
	// be safe to call from any goroutine.
	Cancel()
	Cancelled() bool
	Close() error
}

// Engine reads and writes media containers.
type Engine interface {
	Open(ctx context.Context, path string) (Handle, error)
	Write(ctx context.Context, h Handle, dest string, opts map[string]string) error
	UpdateInPlace(ctx context.Context, h Handle, opts map[string]string) error
	Optimize(ctx context.Context, h Handle) bool
}

// Query is a metadata search request.
type Query struct {
	Kind     string // "movie" or "tv"
	Title    string
	Year     int
	Season   int
	Episode  int
	Language string
	Provider string
	// Path is the source file, for providers that read sidecar files.
	Path string
}

// MetadataProvider looks up tags for a title. Search blocks until the
// provider answers or ctx is done.
type MetadataProvider interface {
	Search(ctx context.Context, q Query) ([]Metadata, error)
}
