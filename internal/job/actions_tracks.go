package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"

	"mediaq/internal/language"
	"mediaq/internal/media"
)

// Alternate group numbers assigned by OrganizeGroups.
const (
	AudioGroup    = 1
	SubtitleGroup = 2
)

// ImportSubtitles adds sidecar .srt files found next to the source, named
// either "<stem>.srt" or "<stem>.<lang>.srt".
type ImportSubtitles struct{}

func (*ImportSubtitles) Kind() Kind                 { return KindImportSubtitles }
func (*ImportSubtitles) Phase() Phase               { return PhasePre }
func (*ImportSubtitles) Description() string        { return "Import subtitles" }
func (*ImportSubtitles) WorkingDescription() string { return "Importing subtitles" }

func (*ImportSubtitles) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	sidecars, err := findSidecarSubtitles(j.Source)
	if err != nil {
		return err
	}
	imported := map[string]bool{}
	for _, t := range h.Tracks() {
		if t.SourcePath != "" {
			imported[t.SourcePath] = true
		}
	}
	for _, sc := range sidecars {
		if imported[sc.path] {
			continue
		}
		h.AddTrack(media.Track{
			Kind:       media.KindSubtitle,
			Codec:      "subrip",
			Language:   sc.language,
			SourcePath: sc.path,
		})
	}
	return nil
}

type sidecar struct {
	path     string
	language string
}

func findSidecarSubtitles(source string) ([]sidecar, error) {
	dir := filepath.Dir(source)
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan subtitles: %w", err)
	}
	var out []sidecar
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".srt") {
			continue
		}
		rest := strings.TrimSuffix(name, filepath.Ext(name))
		if !strings.HasPrefix(rest, stem) {
			continue
		}
		rest = strings.TrimPrefix(rest, stem)
		lang := language.Undetermined
		switch {
		case rest == "":
		case strings.HasPrefix(rest, ".") && language.Valid(rest[1:]):
			lang = language.ToISO3(rest[1:])
		default:
			continue
		}
		out = append(out, sidecar{path: filepath.Join(dir, name), language: lang})
	}
	return out, nil
}

// OrganizeGroups places audio and subtitle tracks in their alternate groups
// and leaves exactly one track of each group enabled.
type OrganizeGroups struct{}

func (*OrganizeGroups) Kind() Kind                 { return KindOrganizeGroups }
func (*OrganizeGroups) Phase() Phase               { return PhasePre }
func (*OrganizeGroups) Description() string        { return "Organize alternate groups" }
func (*OrganizeGroups) WorkingDescription() string { return "Organizing alternate groups" }

func (*OrganizeGroups) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	tracks := h.Tracks()
	for _, group := range []struct {
		kind media.Kind
		id   int
	}{{media.KindAudio, AudioGroup}, {media.KindSubtitle, SubtitleGroup}} {
		members := media.TracksOfKind(tracks, group.kind)
		keep := -1
		for i, t := range members {
			if t.Enabled {
				keep = i
				break
			}
		}
		if keep < 0 && group.kind == media.KindAudio {
			keep = 0
		}
		for i, t := range members {
			t.AlternateGroup = group.id
			t.Enabled = i == keep
			if err := h.UpdateTrack(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// FixFallbacks points AC-3 and E-AC-3 audio tracks without a fallback at an
// AAC track of the same language.
type FixFallbacks struct{}

func (*FixFallbacks) Kind() Kind                 { return KindFixFallbacks }
func (*FixFallbacks) Phase() Phase               { return PhasePre }
func (*FixFallbacks) Description() string        { return "Fix audio fallbacks" }
func (*FixFallbacks) WorkingDescription() string { return "Fixing audio fallbacks" }

func (*FixFallbacks) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	audio := media.TracksOfKind(h.Tracks(), media.KindAudio)
	for _, t := range audio {
		if t.Fallback != 0 || !isSurroundCodec(t.Codec) {
			continue
		}
		for _, candidate := range audio {
			if strings.EqualFold(candidate.Codec, "aac") && language.Equal(candidate.Language, t.Language) {
				t.Fallback = candidate.ID
				if err := h.UpdateTrack(t); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

func isSurroundCodec(codec string) bool {
	switch strings.ToLower(codec) {
	case "ac3", "eac3", "ac-3", "e-ac-3":
		return true
	}
	return false
}

// ClearTrackNames removes the name of every track.
type ClearTrackNames struct{}

func (*ClearTrackNames) Kind() Kind                 { return KindClearTrackNames }
func (*ClearTrackNames) Phase() Phase               { return PhasePre }
func (*ClearTrackNames) Description() string        { return "Clear track names" }
func (*ClearTrackNames) WorkingDescription() string { return "Clearing track names" }

func (*ClearTrackNames) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	for _, t := range h.Tracks() {
		if t.Name == "" {
			continue
		}
		t.Name = ""
		if err := h.UpdateTrack(t); err != nil {
			return err
		}
	}
	return nil
}

// PrettifyAudioNames names audio tracks after their channel layout.
type PrettifyAudioNames struct{}

func (*PrettifyAudioNames) Kind() Kind                 { return KindPrettifyAudioNames }
func (*PrettifyAudioNames) Phase() Phase               { return PhasePre }
func (*PrettifyAudioNames) Description() string        { return "Prettify audio track names" }
func (*PrettifyAudioNames) WorkingDescription() string { return "Prettifying audio track names" }

func (*PrettifyAudioNames) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	for _, t := range media.TracksOfKind(h.Tracks(), media.KindAudio) {
		name := channelLayoutName(t.Channels)
		if name == "" {
			continue
		}
		t.Name = name
		if err := h.UpdateTrack(t); err != nil {
			return err
		}
	}
	return nil
}

var titleCaser = cases.Title(xlanguage.English)

func channelLayoutName(channels int) string {
	var layout string
	switch channels {
	case 1:
		layout = "mono"
	case 2:
		layout = "stereo"
	case 6:
		layout = "surround 5.1"
	case 8:
		layout = "surround 7.1"
	default:
		return ""
	}
	return titleCaser.String(layout)
}

// RenameChapters replaces chapter titles with "Chapter N".
type RenameChapters struct{}

func (*RenameChapters) Kind() Kind                 { return KindRenameChapters }
func (*RenameChapters) Phase() Phase               { return PhasePre }
func (*RenameChapters) Description() string        { return "Rename chapters" }
func (*RenameChapters) WorkingDescription() string { return "Renaming chapters" }

func (*RenameChapters) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	chapters := h.Chapters()
	for i := range chapters {
		chapters[i].Title = fmt.Sprintf("Chapter %d", i+1)
	}
	h.SetChapters(chapters)
	return nil
}

// SetLanguage assigns a language to tracks that carry none.
type SetLanguage struct {
	Language string `json:"language"`
}

func (*SetLanguage) Kind() Kind   { return KindSetLanguage }
func (*SetLanguage) Phase() Phase { return PhasePre }

func (a *SetLanguage) Description() string {
	return "Set unknown track language to " + language.DisplayName(a.Language)
}

func (*SetLanguage) WorkingDescription() string { return "Setting track language" }

func (a *SetLanguage) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	code := language.ToISO3(a.Language)
	for _, t := range h.Tracks() {
		if !language.IsUndetermined(t.Language) {
			continue
		}
		t.Language = code
		if err := h.UpdateTrack(t); err != nil {
			return err
		}
	}
	return nil
}

func (a *SetLanguage) validate() error {
	if !language.Valid(a.Language) || language.IsUndetermined(a.Language) {
		return fmt.Errorf("unknown language %q", a.Language)
	}
	return nil
}

// ColorSpace tags every video track with a colour description.
type ColorSpace struct {
	Tag string `json:"tag"`
}

func (*ColorSpace) Kind() Kind   { return KindColorSpace }
func (*ColorSpace) Phase() Phase { return PhasePre }

func (a *ColorSpace) Description() string {
	return "Set colour space to " + a.Tag
}

func (*ColorSpace) WorkingDescription() string { return "Setting colour space" }

func (a *ColorSpace) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	for _, t := range media.TracksOfKind(h.Tracks(), media.KindVideo) {
		t.ColorTag = a.Tag
		if err := h.UpdateTrack(t); err != nil {
			return err
		}
	}
	return nil
}

func (a *ColorSpace) validate() error {
	if _, ok := media.ColorSpecs[a.Tag]; !ok {
		return fmt.Errorf("unknown colour tag %q", a.Tag)
	}
	return nil
}

// SelectLanguage enables, in every alternate group of the given kind, the
// first track in the preferred language and disables its siblings. Groups
// without a match are left alone.
type SelectLanguage struct {
	TrackKind media.Kind `json:"track_kind"`
	Language  string     `json:"language"`
}

func (*SelectLanguage) Kind() Kind   { return KindSelectLanguage }
func (*SelectLanguage) Phase() Phase { return PhasePre }

func (a *SelectLanguage) Description() string {
	return fmt.Sprintf("Prefer %s %s tracks", language.DisplayName(a.Language), a.TrackKind)
}

func (*SelectLanguage) WorkingDescription() string { return "Selecting preferred language" }

var errNoLanguageMatch = errors.New("no track in the preferred language")

func (a *SelectLanguage) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	groups := map[int][]media.Track{}
	var order []int
	for _, t := range media.TracksOfKind(h.Tracks(), a.TrackKind) {
		if t.AlternateGroup == 0 {
			continue
		}
		if _, seen := groups[t.AlternateGroup]; !seen {
			order = append(order, t.AlternateGroup)
		}
		groups[t.AlternateGroup] = append(groups[t.AlternateGroup], t)
	}

	matched := false
	for _, id := range order {
		members := groups[id]
		pick := -1
		for i, t := range members {
			if language.Equal(t.Language, a.Language) {
				pick = i
				break
			}
		}
		if pick < 0 {
			continue
		}
		matched = true
		for i, t := range members {
			t.Enabled = i == pick
			if err := h.UpdateTrack(t); err != nil {
				return err
			}
		}
	}
	if !matched {
		return errNoLanguageMatch
	}
	return nil
}

func (a *SelectLanguage) validate() error {
	if a.TrackKind != media.KindAudio && a.TrackKind != media.KindSubtitle {
		return fmt.Errorf("track kind must be audio or subtitle, got %q", a.TrackKind)
	}
	if !language.Valid(a.Language) {
		return fmt.Errorf("unknown language %q", a.Language)
	}
	return nil
}
