package ffmpeg

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"mediaq/internal/media"
)

type streamMap struct {
	spec  string
	track media.Track
}

// writePlan is everything needed to render one ffmpeg remux invocation.
type writePlan struct {
	inputs       []string
	maps         []streamMap
	metadata     media.Metadata
	chaptersFile string
	output       string
	forceHVC1    bool
}

// newWritePlan maps the handle's tracks onto ffmpeg inputs. When primary is a
// transcoder output, video and audio come from it by ordinal and subtitles
// from the original source, which is appended as a second input.
func newWritePlan(h media.Handle, primary string, transcoded bool, output string, opts map[string]string) writePlan {
	plan := writePlan{
		inputs:    []string{primary},
		metadata:  h.Metadata(),
		output:    output,
		forceHVC1: opts[media.OptionForceHVC1] == "true",
	}
	inputIndex := func(path string) int {
		if idx := slices.Index(plan.inputs, path); idx >= 0 {
			return idx
		}
		plan.inputs = append(plan.inputs, path)
		return len(plan.inputs) - 1
	}

	ordinals := map[media.Kind]int{}
	for _, t := range h.Tracks() {
		var spec string
		switch {
		case t.SourcePath != "":
			spec = fmt.Sprintf("%d:0", inputIndex(t.SourcePath))
		case transcoded && t.Kind == media.KindVideo:
			spec = fmt.Sprintf("0:v:%d?", ordinals[t.Kind])
		case transcoded && t.Kind == media.KindAudio:
			spec = fmt.Sprintf("0:a:%d?", ordinals[t.Kind])
		case transcoded:
			spec = fmt.Sprintf("%d:%d", inputIndex(h.Path()), t.ID-1)
		default:
			spec = fmt.Sprintf("0:%d", t.ID-1)
		}
		ordinals[t.Kind]++
		plan.maps = append(plan.maps, streamMap{spec: spec, track: t})
	}
	return plan
}

func (p writePlan) args() []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	for _, in := range p.inputs {
		args = append(args, "-i", in)
	}
	chaptersInput := -1
	if p.chaptersFile != "" {
		chaptersInput = len(p.inputs)
		args = append(args, "-i", p.chaptersFile)
	}
	for _, m := range p.maps {
		args = append(args, "-map", m.spec)
	}
	args = append(args, "-map_metadata", "-1", "-map_chapters", strconv.Itoa(chaptersInput))
	args = append(args, "-c", "copy", "-c:s", "mov_text")

	if p.forceHVC1 && slices.ContainsFunc(p.maps, func(m streamMap) bool {
		return m.track.Kind == media.KindVideo && isHEVC(m.track.Codec)
	}) {
		args = append(args, "-tag:v", "hvc1")
	}

	keys := make([]string, 0, len(p.metadata))
	for key := range p.metadata {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		args = append(args, "-metadata", key+"="+p.metadata[key])
	}

	for i, m := range p.maps {
		t := m.track
		stream := strconv.Itoa(i)
		args = append(args,
			"-metadata:s:"+stream, "language="+t.Language,
			"-metadata:s:"+stream, "title="+t.Name,
		)
		disposition := "0"
		if t.Enabled {
			disposition = "default"
		}
		args = append(args, "-disposition:"+stream, disposition)
		if t.Kind == media.KindVideo && t.ColorTag != "" {
			if spec, ok := media.ColorSpecs[t.ColorTag]; ok {
				args = append(args,
					"-color_primaries:"+stream, spec.Primaries,
					"-color_trc:"+stream, spec.Transfer,
					"-colorspace:"+stream, spec.Matrix,
				)
			}
		}
	}

	args = append(args, "-progress", "pipe:1", "-nostats", p.output)
	return args
}

func optimizeArgs(input, output string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", input,
		"-map", "0", "-map_metadata", "0", "-map_chapters", "0",
		"-c", "copy",
		"-movflags", "+faststart",
		"-progress", "pipe:1", "-nostats",
		output,
	}
}

func isHEVC(codec string) bool {
	switch strings.ToLower(codec) {
	case "hevc", "h265", "hvc1", "hev1":
		return true
	default:
		return false
	}
}

var ffmetaEscaper = strings.NewReplacer(`\`, `\\`, "=", `\=`, ";", `\;`, "#", `\#`, "\n", `\`+"\n")

// chapterMetadata renders chapters in ffmetadata format. Each chapter ends
// where the next begins; the last one ends at duration.
func chapterMetadata(chapters []media.Chapter, duration time.Duration) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	for i, ch := range chapters {
		end := duration
		if i+1 < len(chapters) {
			end = chapters[i+1].Start
		}
		if end <= ch.Start {
			end = ch.Start + time.Millisecond
		}
		fmt.Fprintf(&b, "[CHAPTER]\nTIMEBASE=1/1000\nSTART=%d\nEND=%d\ntitle=%s\n",
			ch.Start.Milliseconds(), end.Milliseconds(), ffmetaEscaper.Replace(ch.Title))
	}
	return b.String()
}

// tempSibling returns a hidden path next to dest that keeps its extension so
// ffmpeg picks the same muxer.
func tempSibling(dest, tag string) string {
	dir, base := filepath.Split(dest)
	return filepath.Join(dir, fmt.Sprintf(".mediaq-%s-%d-%s", tag, time.Now().UnixNano(), base))
}
