package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"

	"mediaq/internal/language"
	"mediaq/internal/media"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateActions(); err != nil {
		return err
	}
	if err := c.validatePresets(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateQueue() error {
	if !slices.Contains(FileTypes, c.Queue.FileType) {
		return fmt.Errorf("queue.file_type must be one of %s, got %q", strings.Join(FileTypes, ", "), c.Queue.FileType)
	}
	if c.Queue.StartSchedule != "" {
		if _, err := cron.ParseStandard(c.Queue.StartSchedule); err != nil {
			return fmt.Errorf("queue.start_schedule: %w", err)
		}
	}
	return nil
}

func (c *Config) validateActions() error {
	a := c.Actions
	for key, code := range map[string]string{
		"actions.movie_language":    a.MovieLanguage,
		"actions.tv_language":       a.TVLanguage,
		"actions.language":          a.Language,
		"actions.audio_language":    a.AudioLanguage,
		"actions.subtitle_language": a.SubtitleLanguage,
	} {
		if code != "" && !language.Valid(code) {
			return fmt.Errorf("%s: unknown language %q", key, code)
		}
	}
	if a.ColorSpace != "" {
		if _, ok := media.ColorSpecs[a.ColorSpace]; !ok {
			return fmt.Errorf("actions.color_space: unknown colour tag %q", a.ColorSpace)
		}
	}
	if a.Preset != "" {
		if _, ok := c.PresetByName(a.Preset); !ok {
			return fmt.Errorf("actions.preset: no [[presets]] entry named %q", a.Preset)
		}
	}
	return nil
}

func (c *Config) validatePresets() error {
	seen := make(map[string]struct{}, len(c.Presets))
	for i, p := range c.Presets {
		if p.Name == "" {
			return fmt.Errorf("presets[%d].name must be set", i)
		}
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("presets[%d]: duplicate preset name %q", i, p.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.RetentionDays < 0 {
		return fmt.Errorf("logging.retention_days must be >= 0, got %d", c.Logging.RetentionDays)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}
