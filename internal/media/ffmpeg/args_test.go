package ffmpeg

import (
	"slices"
	"strings"
	"testing"
	"time"

	"mediaq/internal/media"
	"mediaq/internal/media/ffprobe"
)

func testHandle() *handle {
	tracks := []media.Track{
		{ID: 1, Kind: media.KindVideo, Codec: "hevc", Enabled: true, ColorTag: "bt709"},
		{ID: 2, Kind: media.KindAudio, Codec: "aac", Language: "eng", Name: "Stereo", Enabled: true},
		{ID: 3, Kind: media.KindAudio, Codec: "ac3", Language: "fra"},
	}
	h := &handle{Base: media.NewBase("/src/movie.mkv", false, media.Metadata{"title": "Movie", "date": "1999"}, tracks, nil, 100), duration: 60}
	h.AddTrack(media.Track{Kind: media.KindSubtitle, Language: "eng", SourcePath: "/src/movie.en.srt"})
	return h
}

func argPairs(args []string, flag string) []string {
	var out []string
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			out = append(out, args[i+1])
		}
	}
	return out
}

func TestWritePlanMapsTracksAndSidecars(t *testing.T) {
	plan := newWritePlan(testHandle(), "/src/movie.mkv", false, "/out/.tmp.mp4", map[string]string{media.OptionForceHVC1: "true"})
	args := plan.args()

	if got := argPairs(args, "-i"); !slices.Equal(got, []string{"/src/movie.mkv", "/src/movie.en.srt"}) {
		t.Fatalf("unexpected inputs: %v", got)
	}
	if got := argPairs(args, "-map"); !slices.Equal(got, []string{"0:0", "0:1", "0:2", "1:0"}) {
		t.Fatalf("unexpected maps: %v", got)
	}
	if got := argPairs(args, "-map_chapters"); !slices.Equal(got, []string{"-1"}) {
		t.Fatalf("expected chapters dropped, got %v", got)
	}
	if got := argPairs(args, "-metadata"); !slices.Equal(got, []string{"date=1999", "title=Movie"}) {
		t.Fatalf("expected sorted container tags, got %v", got)
	}
	if got := argPairs(args, "-tag:v"); !slices.Equal(got, []string{"hvc1"}) {
		t.Fatalf("expected hvc1 tag, got %v", got)
	}
	if got := argPairs(args, "-disposition:2"); !slices.Equal(got, []string{"0"}) {
		t.Fatalf("expected disabled french track, got %v", got)
	}
	if got := argPairs(args, "-disposition:1"); !slices.Equal(got, []string{"default"}) {
		t.Fatalf("expected default english track, got %v", got)
	}
	if got := argPairs(args, "-metadata:s:3"); !slices.Contains(got, "language=eng") {
		t.Fatalf("expected subtitle language, got %v", got)
	}
	if got := argPairs(args, "-color_primaries:0"); !slices.Equal(got, []string{"bt709"}) {
		t.Fatalf("expected colour primaries, got %v", got)
	}
	if args[len(args)-1] != "/out/.tmp.mp4" {
		t.Fatalf("expected output last, got %q", args[len(args)-1])
	}
}

func TestWritePlanTranscodedUsesOrdinals(t *testing.T) {
	h := testHandle()
	plan := newWritePlan(h, "/stage/movie.mkv", true, "/out/x.mp4", nil)
	args := plan.args()

	if got := argPairs(args, "-i"); !slices.Equal(got, []string{"/stage/movie.mkv", "/src/movie.en.srt"}) {
		t.Fatalf("unexpected inputs: %v", got)
	}
	if got := argPairs(args, "-map"); !slices.Equal(got, []string{"0:v:0?", "0:a:0?", "0:a:1?", "1:0"}) {
		t.Fatalf("unexpected maps: %v", got)
	}
	if slices.Contains(args, "-tag:v") {
		t.Fatal("did not expect hvc1 tag without option")
	}
}

func TestWritePlanChaptersInput(t *testing.T) {
	plan := newWritePlan(testHandle(), "/src/movie.mkv", false, "/out/x.mp4", nil)
	plan.chaptersFile = "/tmp/ch.ffmeta"
	args := plan.args()
	if got := argPairs(args, "-map_chapters"); !slices.Equal(got, []string{"2"}) {
		t.Fatalf("expected chapters from third input, got %v", got)
	}
}

func TestChapterMetadata(t *testing.T) {
	out := chapterMetadata([]media.Chapter{
		{Start: 0, Title: "Intro; part=1"},
		{Start: 90 * time.Second, Title: "Main"},
	}, 120*time.Second)

	if !strings.HasPrefix(out, ";FFMETADATA1\n") {
		t.Fatalf("missing header: %q", out)
	}
	for _, fragment := range []string{"START=0\nEND=90000", "START=90000\nEND=120000", `title=Intro\; part\=1`} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in %q", fragment, out)
		}
	}
}

func TestTracksFromProbe(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080, ColorPrimaries: "bt709", ColorTransfer: "bt709", ColorSpace: "bt709"},
		{Index: 1, CodecType: "audio", CodecName: "aac", Channels: 2, Tags: map[string]string{"language": "en"}},
		{Index: 2, CodecType: "audio", CodecName: "ac3", Channels: 6},
		{Index: 3, CodecType: "data"},
		{Index: 4, CodecType: "subtitle", CodecName: "subrip", Tags: map[string]string{"title": "Forced"}},
	}
	tracks := tracksFromProbe(streams)
	if len(tracks) != 4 {
		t.Fatalf("expected data stream skipped, got %d tracks", len(tracks))
	}
	if tracks[0].ID != 1 || !tracks[0].Enabled || tracks[0].ColorTag != "bt709" {
		t.Fatalf("unexpected video track: %+v", tracks[0])
	}
	if tracks[1].Language != "eng" || !tracks[1].Enabled {
		t.Fatalf("expected first audio enabled with eng, got %+v", tracks[1])
	}
	if tracks[2].Enabled || tracks[2].Language != "und" {
		t.Fatalf("expected second audio disabled and und, got %+v", tracks[2])
	}
	if tracks[3].Enabled || tracks[3].Name != "Forced" || tracks[3].ID != 5 {
		t.Fatalf("unexpected subtitle: %+v", tracks[3])
	}
}

func TestSupportsInPlace(t *testing.T) {
	if !supportsInPlace("/a/b.MP4") || supportsInPlace("/a/b.mkv") {
		t.Fatal("unexpected in-place support result")
	}
}
