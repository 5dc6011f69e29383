package job

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"mediaq/internal/language"
	"mediaq/internal/media"
	"mediaq/internal/textutil"
)

// ClearMetadata removes every container tag.
type ClearMetadata struct{}

func (*ClearMetadata) Kind() Kind                 { return KindClearMetadata }
func (*ClearMetadata) Phase() Phase               { return PhasePre }
func (*ClearMetadata) Description() string        { return "Clear existing metadata" }
func (*ClearMetadata) WorkingDescription() string { return "Clearing metadata" }

func (*ClearMetadata) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	h.SetMetadata(media.Metadata{})
	return nil
}

// SearchMetadata parses the source filename, looks the title up through the
// metadata provider and merges the first result into the handle.
type SearchMetadata struct {
	MovieLanguage string `json:"movie_language,omitempty"`
	TVLanguage    string `json:"tv_language,omitempty"`
	MovieProvider string `json:"movie_provider,omitempty"`
	TVProvider    string `json:"tv_provider,omitempty"`
}

func (*SearchMetadata) Kind() Kind                 { return KindSearchMetadata }
func (*SearchMetadata) Phase() Phase               { return PhasePre }
func (*SearchMetadata) Description() string        { return "Search metadata" }
func (*SearchMetadata) WorkingDescription() string { return "Searching metadata" }

var errNoMetadataProvider = errors.New("no metadata provider configured")

func (a *SearchMetadata) Apply(ctx context.Context, rt Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	if hd := hdVideoTag(h.Tracks()); hd != "" {
		h.MergeMetadata(media.Metadata{media.TagHDVideo: hd})
	}
	if rt.Metadata == nil {
		return errNoMetadataProvider
	}

	name := textutil.ParseMediaName(j.Source)
	if name.Title == "" {
		return fmt.Errorf("no title in %q", filepath.Base(j.Source))
	}
	q := media.Query{Title: name.Title, Year: name.Year, Path: j.Source}
	if name.TV {
		q.Kind = "tv"
		q.Season = name.Season
		q.Episode = name.Episode
		q.Language = a.TVLanguage
		q.Provider = a.TVProvider
	} else {
		q.Kind = "movie"
		q.Language = a.MovieLanguage
		q.Provider = a.MovieProvider
	}

	results, err := rt.Metadata.Search(ctx, q)
	if err != nil {
		return fmt.Errorf("metadata search %q: %w", q.Title, err)
	}
	if len(results) == 0 {
		return fmt.Errorf("metadata search %q: no results", q.Title)
	}
	h.MergeMetadata(results[0])
	return nil
}

func (a *SearchMetadata) validate() error {
	for _, code := range []string{a.MovieLanguage, a.TVLanguage} {
		if code != "" && !language.Valid(code) {
			return fmt.Errorf("unknown language %q", code)
		}
	}
	return nil
}

// hdVideoTag maps the largest video track to the mp4 hdvd values.
func hdVideoTag(tracks []media.Track) string {
	width, height := 0, 0
	for _, t := range media.TracksOfKind(tracks, media.KindVideo) {
		if t.Height > height {
			width, height = t.Width, t.Height
		}
	}
	switch {
	case height >= 2160 || width >= 3840:
		return "3"
	case height >= 1080 || width >= 1920:
		return "2"
	case height >= 720 || width >= 1280:
		return "1"
	case height > 0:
		return "0"
	default:
		return ""
	}
}

// SetOutputFilename renames the destination after the job's metadata.
type SetOutputFilename struct{}

func (*SetOutputFilename) Kind() Kind                 { return KindSetOutputFilename }
func (*SetOutputFilename) Phase() Phase               { return PhasePre }
func (*SetOutputFilename) Description() string        { return "Set output filename" }
func (*SetOutputFilename) WorkingDescription() string { return "Setting output filename" }

func (*SetOutputFilename) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	name := outputName(h.Metadata())
	if name == "" {
		return errors.New("metadata has no title")
	}
	dest := j.Destination()
	if samePath(j.Source, dest) {
		return errors.New("in-place update keeps the source name")
	}
	j.rewriteDestination(filepath.Join(filepath.Dir(dest), name+filepath.Ext(dest)))
	return nil
}

func outputName(md media.Metadata) string {
	title := strings.TrimSpace(md[media.TagTitle])
	show := strings.TrimSpace(md[media.TagShow])
	season, _ := strconv.Atoi(md[media.TagSeason])
	episode, _ := strconv.Atoi(md[media.TagEpisode])

	var name string
	switch {
	case show != "" && season > 0 && episode > 0:
		name = fmt.Sprintf("%s S%02dE%02d", show, season, episode)
		if title != "" {
			name += " - " + title
		}
	case title != "":
		name = title
		if year := releaseYear(md[media.TagDate]); year != "" {
			name += " (" + year + ")"
		}
	}
	return textutil.SanitizeFileName(name)
}

func releaseYear(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	if _, err := strconv.Atoi(date[:4]); err != nil {
		return ""
	}
	return date[:4]
}

// ApplyPreset merges a named tag set into the metadata, or replaces it.
type ApplyPreset struct {
	Name    string            `json:"name"`
	Tags    map[string]string `json:"tags,omitempty"`
	Replace bool              `json:"replace,omitempty"`
}

func (*ApplyPreset) Kind() Kind   { return KindApplyPreset }
func (*ApplyPreset) Phase() Phase { return PhasePre }

func (a *ApplyPreset) Description() string {
	return fmt.Sprintf("Apply %s preset", a.Name)
}

func (a *ApplyPreset) WorkingDescription() string {
	return fmt.Sprintf("Applying %s preset", a.Name)
}

func (a *ApplyPreset) Apply(_ context.Context, _ Runtime, j *Job) error {
	h, err := handleOf(j)
	if err != nil {
		return err
	}
	if a.Replace {
		md := media.Metadata{}
		md.Merge(a.Tags)
		h.SetMetadata(md)
		return nil
	}
	h.MergeMetadata(a.Tags)
	return nil
}

func (a *ApplyPreset) validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("preset name is required")
	}
	return nil
}
