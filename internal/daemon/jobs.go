package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"mediaq/internal/config"
	"mediaq/internal/job"
	"mediaq/internal/media"
	"mediaq/internal/services"
	"mediaq/internal/textutil"
)

// SupportedExtensions lists the source containers accepted by Add.
var SupportedExtensions = map[string]struct{}{
	".mkv":  {},
	".mka":  {},
	".mks":  {},
	".mov":  {},
	".mp4":  {},
	".m4v":  {},
	".m4a":  {},
	".avi":  {},
	".ts":   {},
	".m2ts": {},
	".webm": {},
}

// ErrNothingToAdd is returned when none of the given paths hold a supported file.
var ErrNothingToAdd = errors.New("no supported media files found")

// NewJobs expands paths into ready jobs. Directories contribute their
// immediate, non-hidden, supported files; everything is ordered by natural
// file name order within each directory, and paths themselves are taken in
// natural order of their base names.
func NewJobs(cfg *config.Config, paths []string) ([]*job.Job, error) {
	if cfg == nil {
		return nil, errors.New("configuration unavailable")
	}
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		abs, err := config.ExpandPath(trimmed)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, abs)
	}
	slices.SortStableFunc(resolved, func(a, b string) int {
		return textutil.NaturalCompare(filepath.Base(a), filepath.Base(b))
	})

	var sources []string
	for _, p := range resolved {
		files, err := expandSource(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, files...)
	}
	if len(sources) == 0 {
		return nil, ErrNothingToAdd
	}

	jobs := make([]*job.Job, 0, len(sources))
	for _, src := range sources {
		jobs = append(jobs, newJob(cfg, src))
	}
	return jobs, nil
}

func expandSource(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "add", "stat source", path, nil)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		if supported(path) {
			return []string{path}, nil
		}
		return nil, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", path, err)
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || entry.IsDir() {
			continue
		}
		if supported(name) {
			files = append(files, filepath.Join(path, name))
		}
	}
	slices.SortFunc(files, func(a, b string) int {
		return textutil.NaturalCompare(filepath.Base(a), filepath.Base(b))
	})
	return files, nil
}

func supported(name string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func newJob(cfg *config.Config, source string) *job.Job {
	return job.New(source, Destination(cfg, source), Actions(cfg), attributes(cfg, source))
}

// Destination is where a job for source writes by default: destination_dir,
// or the source's own directory, with the configured file type.
func Destination(cfg *config.Config, source string) string {
	dir := cfg.Queue.DestinationDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(source)
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	ext := strings.TrimPrefix(strings.TrimSpace(cfg.Queue.FileType), ".")
	if ext == "" {
		ext = "mp4"
	}
	return filepath.Join(dir, base+"."+ext)
}

func attributes(cfg *config.Config, source string) map[string]string {
	attrs := map[string]string{}
	if info, err := os.Stat(source); err == nil && info.Size() > job.LargeFileThreshold {
		attrs[job.AttrLargeFile] = "true"
	}
	if cfg.Queue.ChapterPreviews {
		attrs[job.AttrChapterPreviews] = "true"
	}
	if cfg.Queue.ForceHVC1 {
		attrs[job.AttrForceHVC1] = "true"
	}
	if cfg.Queue.Overwrite {
		attrs[job.AttrOverwrite] = "true"
	}
	return attrs
}

// Actions builds the action list selected by the [actions] preferences.
func Actions(cfg *config.Config) []job.Action {
	prefs := cfg.Actions
	var actions []job.Action
	if prefs.ClearMetadata {
		actions = append(actions, &job.ClearMetadata{})
	}
	if prefs.SearchMetadata {
		actions = append(actions, &job.SearchMetadata{
			MovieLanguage: prefs.MovieLanguage,
			TVLanguage:    prefs.TVLanguage,
			MovieProvider: prefs.MovieProvider,
			TVProvider:    prefs.TVProvider,
		})
	}
	if prefs.SetOutputFilename {
		actions = append(actions, &job.SetOutputFilename{})
	}
	if prefs.ImportSubtitles {
		actions = append(actions, &job.ImportSubtitles{})
	}
	if prefs.OrganizeGroups {
		actions = append(actions, &job.OrganizeGroups{})
	}
	if prefs.FixFallbacks {
		actions = append(actions, &job.FixFallbacks{})
	}
	if prefs.ClearTrackNames {
		actions = append(actions, &job.ClearTrackNames{})
	}
	if prefs.PrettifyAudioNames {
		actions = append(actions, &job.PrettifyAudioNames{})
	}
	if prefs.RenameChapters {
		actions = append(actions, &job.RenameChapters{})
	}
	if prefs.Language != "" {
		actions = append(actions, &job.SetLanguage{Language: prefs.Language})
	}
	if prefs.ColorSpace != "" {
		actions = append(actions, &job.ColorSpace{Tag: prefs.ColorSpace})
	}
	if prefs.Preset != "" {
		if preset, ok := cfg.PresetByName(prefs.Preset); ok {
			actions = append(actions, &job.ApplyPreset{Name: preset.Name, Tags: preset.Tags, Replace: preset.Replace})
		}
	}
	if prefs.Optimize {
		actions = append(actions, &job.Optimize{})
	}
	if prefs.LibraryDir != "" {
		actions = append(actions, &job.SendToLibrary{Dir: prefs.LibraryDir})
	}
	if prefs.AudioLanguage != "" {
		actions = append(actions, &job.SelectLanguage{TrackKind: media.KindAudio, Language: prefs.AudioLanguage})
	}
	if prefs.SubtitleLanguage != "" {
		actions = append(actions, &job.SelectLanguage{TrackKind: media.KindSubtitle, Language: prefs.SubtitleLanguage})
	}
	return actions
}
