package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"mediaq/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeQueue(); err != nil {
		return err
	}
	if err := c.normalizeActions(); err != nil {
		return err
	}
	c.normalizePresets()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Socket) == "" {
		c.Paths.Socket = filepath.Join(c.Paths.StateDir, defaultSocketName)
	}
	if c.Paths.Socket, err = expandPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}
	return nil
}

func (c *Config) normalizeQueue() error {
	c.Queue.StartSchedule = strings.TrimSpace(c.Queue.StartSchedule)
	c.Queue.FileType = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Queue.FileType), "."))
	if c.Queue.FileType == "" {
		c.Queue.FileType = defaultFileType
	}
	if strings.TrimSpace(c.Queue.DestinationDir) != "" {
		var err error
		if c.Queue.DestinationDir, err = expandPath(c.Queue.DestinationDir); err != nil {
			return fmt.Errorf("queue.destination_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeActions() error {
	a := &c.Actions
	for _, code := range []*string{&a.MovieLanguage, &a.TVLanguage, &a.Language, &a.AudioLanguage, &a.SubtitleLanguage} {
		*code = strings.ToLower(strings.TrimSpace(*code))
		if *code != "" && language.Valid(*code) {
			*code = language.ToISO3(*code)
		}
	}
	if a.MovieLanguage == "" {
		a.MovieLanguage = defaultLanguage
	}
	if a.TVLanguage == "" {
		a.TVLanguage = defaultLanguage
	}
	a.MovieProvider = strings.ToLower(strings.TrimSpace(a.MovieProvider))
	a.TVProvider = strings.ToLower(strings.TrimSpace(a.TVProvider))
	a.ColorSpace = strings.ToLower(strings.TrimSpace(a.ColorSpace))
	a.Preset = strings.TrimSpace(a.Preset)
	if strings.TrimSpace(a.LibraryDir) != "" {
		var err error
		if a.LibraryDir, err = expandPath(a.LibraryDir); err != nil {
			return fmt.Errorf("actions.library_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizePresets() {
	for i := range c.Presets {
		c.Presets[i].Name = strings.TrimSpace(c.Presets[i].Name)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
