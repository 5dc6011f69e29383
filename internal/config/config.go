package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains state, log and socket locations.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	Socket   string `toml:"socket"`
}

// Queue controls how the queue runs and where new jobs write.
type Queue struct {
	AutoStart             bool   `toml:"auto_start"`
	ClearCompletedOnStart bool   `toml:"clear_completed_on_start"`
	StartSchedule         string `toml:"start_schedule"`
	DestinationDir        string `toml:"destination_dir"`
	FileType              string `toml:"file_type"`
	Overwrite             bool   `toml:"overwrite"`
	ChapterPreviews       bool   `toml:"chapter_previews"`
	ForceHVC1             bool   `toml:"force_hvc1"`
}

// Actions selects the default pipeline attached to newly added jobs.
type Actions struct {
	ClearMetadata      bool   `toml:"clear_metadata"`
	SearchMetadata     bool   `toml:"search_metadata"`
	MovieLanguage      string `toml:"movie_language"`
	TVLanguage         string `toml:"tv_language"`
	MovieProvider      string `toml:"movie_provider"`
	TVProvider         string `toml:"tv_provider"`
	SetOutputFilename  bool   `toml:"set_output_filename"`
	ImportSubtitles    bool   `toml:"import_subtitles"`
	OrganizeGroups     bool   `toml:"organize_groups"`
	FixFallbacks       bool   `toml:"fix_fallbacks"`
	ClearTrackNames    bool   `toml:"clear_track_names"`
	PrettifyAudioNames bool   `toml:"prettify_audio_names"`
	RenameChapters     bool   `toml:"rename_chapters"`
	Language           string `toml:"language"`
	ColorSpace         string `toml:"color_space"`
	Preset             string `toml:"preset"`
	Optimize           bool   `toml:"optimize"`
	LibraryDir         string `toml:"library_dir"`
	AudioLanguage      string `toml:"audio_language"`
	SubtitleLanguage   string `toml:"subtitle_language"`
}

// Preset is a named metadata tag set.
type Preset struct {
	Name    string            `toml:"name"`
	Replace bool              `toml:"replace"`
	Tags    map[string]string `toml:"tags"`
}

// Engine names the external tools used to read and write media.
type Engine struct {
	FFmpeg    string `toml:"ffmpeg"`
	FFprobe   string `toml:"ffprobe"`
	Transcode bool   `toml:"transcode"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	NotifyQueue    bool   `toml:"notify_queue"`
	NotifyErrors   bool   `toml:"notify_errors"`
}

// Config encapsulates all configuration values for mediaq.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Queue         Queue         `toml:"queue"`
	Actions       Actions       `toml:"actions"`
	Presets       []Preset      `toml:"presets"`
	Engine        Engine        `toml:"engine"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, filepath.Dir(c.Paths.Socket)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StorePath is the queue database location.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// LockPath is the single-daemon lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "mediaq.lock")
}

// FFmpegBinary returns the ffmpeg executable.
func (c *Config) FFmpegBinary() string {
	return textOr(c.Engine.FFmpeg, "ffmpeg")
}

// FFprobeBinary returns the ffprobe executable.
func (c *Config) FFprobeBinary() string {
	return textOr(c.Engine.FFprobe, "ffprobe")
}

// PresetByName finds a configured preset, matching case-insensitively.
func (c *Config) PresetByName(name string) (Preset, bool) {
	for _, p := range c.Presets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Preset{}, false
}

func textOr(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
