package ffmpeg

import (
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mediaq/internal/language"
	"mediaq/internal/media"
	"mediaq/internal/media/ffprobe"
)

type handle struct {
	*media.Base
	duration float64

	mu     sync.Mutex
	output string
}

var _ media.Handle = (*handle)(nil)

// outputPath is the file the last successful write produced, or the source
// when nothing has been written yet.
func (h *handle) outputPath() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.output != "" {
		return h.output
	}
	return h.Path()
}

func (h *handle) setOutput(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.output = path
}

var inPlaceExtensions = map[string]struct{}{".mp4": {}, ".m4v": {}, ".mov": {}, ".m4a": {}}

// supportsInPlace reports whether the container family can be rewritten in
// place without changing format.
func supportsInPlace(path string) bool {
	_, ok := inPlaceExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func newHandle(path string, probe ffprobe.Result) *handle {
	md := media.Metadata{}
	for key, value := range probe.Format.Tags {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" || strings.TrimSpace(value) == "" {
			continue
		}
		if _, ok := ignoredTags[key]; ok {
			continue
		}
		md[key] = strings.TrimSpace(value)
	}

	tracks := tracksFromProbe(probe.Streams)
	chapters := make([]media.Chapter, 0, len(probe.Chapters))
	for _, ch := range probe.Chapters {
		chapters = append(chapters, media.Chapter{
			Start: time.Duration(ch.StartSeconds() * float64(time.Second)),
			Title: ch.Title(),
		})
	}

	duration := probe.DurationSeconds()
	if math.IsNaN(duration) {
		duration = 0
	}
	return &handle{
		Base:     media.NewBase(path, supportsInPlace(path), md, tracks, chapters, probe.SizeBytes()),
		duration: duration,
	}
}

// Tags written by muxers that must not be copied forward.
var ignoredTags = map[string]struct{}{
	"major_brand":       {},
	"minor_version":     {},
	"compatible_brands": {},
	"encoder":           {},
	"creation_time":     {},
}

func tracksFromProbe(streams []ffprobe.Stream) []media.Track {
	tracks := make([]media.Track, 0, len(streams))
	hasDefault := map[media.Kind]bool{}
	for _, s := range streams {
		kind, ok := streamKind(s.CodecType)
		if !ok {
			continue
		}
		t := media.Track{
			ID:       s.Index + 1,
			Kind:     kind,
			Codec:    s.CodecName,
			Name:     s.Tag("title"),
			Language: language.ToISO3(language.ExtractFromTags(s.Tags)),
			Enabled:  s.IsDefault(),
			Channels: s.Channels,
			Width:    s.Width,
			Height:   s.Height,
			ColorTag: colorTagFromStream(s),
		}
		if t.Enabled {
			hasDefault[kind] = true
		}
		tracks = append(tracks, t)
	}
	// Containers without dispositions play the first track of each kind.
	for i := range tracks {
		kind := tracks[i].Kind
		if kind == media.KindSubtitle || hasDefault[kind] {
			continue
		}
		tracks[i].Enabled = true
		hasDefault[kind] = true
	}
	return tracks
}

func streamKind(codecType string) (media.Kind, bool) {
	switch strings.ToLower(codecType) {
	case "video":
		return media.KindVideo, true
	case "audio":
		return media.KindAudio, true
	case "subtitle":
		return media.KindSubtitle, true
	default:
		return "", false
	}
}
