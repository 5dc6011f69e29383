package job

import (
	"context"
	"errors"

	"mediaq/internal/media"
)

// Phase says when an action runs relative to the primary write.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Kind is the serialization discriminator of an action variant.
type Kind string

const (
	KindClearMetadata      Kind = "clear_metadata"
	KindSearchMetadata     Kind = "search_metadata"
	KindSetOutputFilename  Kind = "set_output_filename"
	KindImportSubtitles    Kind = "import_subtitles"
	KindOrganizeGroups     Kind = "organize_groups"
	KindFixFallbacks       Kind = "fix_fallbacks"
	KindClearTrackNames    Kind = "clear_track_names"
	KindPrettifyAudioNames Kind = "prettify_audio_names"
	KindRenameChapters     Kind = "rename_chapters"
	KindSetLanguage        Kind = "set_language"
	KindColorSpace         Kind = "color_space"
	KindApplyPreset        Kind = "apply_preset"
	KindSelectLanguage     Kind = "select_language"
	KindOptimize           Kind = "optimize"
	KindSendToLibrary      Kind = "send_to_library"
)

// Action is one step of a job's pipeline. Implementations are plain values
// whose exported fields are their parameters.
type Action interface {
	Kind() Kind
	Phase() Phase
	// Description is the label shown when listing a job's actions.
	Description() string
	// WorkingDescription is the progress text while the action runs.
	WorkingDescription() string
	Apply(ctx context.Context, rt Runtime, j *Job) error
}

// validator is implemented by actions whose parameters can be invalid.
type validator interface {
	validate() error
}

var registry = map[Kind]func() Action{
	KindClearMetadata:      func() Action { return &ClearMetadata{} },
	KindSearchMetadata:     func() Action { return &SearchMetadata{} },
	KindSetOutputFilename:  func() Action { return &SetOutputFilename{} },
	KindImportSubtitles:    func() Action { return &ImportSubtitles{} },
	KindOrganizeGroups:     func() Action { return &OrganizeGroups{} },
	KindFixFallbacks:       func() Action { return &FixFallbacks{} },
	KindClearTrackNames:    func() Action { return &ClearTrackNames{} },
	KindPrettifyAudioNames: func() Action { return &PrettifyAudioNames{} },
	KindRenameChapters:     func() Action { return &RenameChapters{} },
	KindSetLanguage:        func() Action { return &SetLanguage{} },
	KindColorSpace:         func() Action { return &ColorSpace{} },
	KindApplyPreset:        func() Action { return &ApplyPreset{} },
	KindSelectLanguage:     func() Action { return &SelectLanguage{} },
	KindOptimize:           func() Action { return &Optimize{} },
	KindSendToLibrary:      func() Action { return &SendToLibrary{} },
}

var errNoHandle = errors.New("no open media handle")

func handleOf(j *Job) (media.Handle, error) {
	h := j.Handle()
	if h == nil {
		return nil, errNoHandle
	}
	return h, nil
}
