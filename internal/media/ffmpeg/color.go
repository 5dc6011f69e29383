package ffmpeg

import (
	"maps"
	"slices"
	"strings"

	"mediaq/internal/media"
	"mediaq/internal/media/ffprobe"
)

// colorTagFromStream returns the first tag, in name order, whose triple
// matches the stream.
func colorTagFromStream(s ffprobe.Stream) string {
	if s.ColorPrimaries == "" {
		return ""
	}
	for _, tag := range slices.Sorted(maps.Keys(media.ColorSpecs)) {
		spec := media.ColorSpecs[tag]
		if strings.EqualFold(spec.Primaries, s.ColorPrimaries) &&
			strings.EqualFold(spec.Transfer, s.ColorTransfer) &&
			strings.EqualFold(spec.Matrix, s.ColorSpace) {
			return tag
		}
	}
	return ""
}
