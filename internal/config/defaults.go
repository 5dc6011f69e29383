package config

const (
	defaultConfigPath            = "~/.config/mediaq/config.toml"
	defaultStateDir              = "~/.local/share/mediaq"
	defaultLogDir                = "~/.local/share/mediaq/logs"
	defaultSocketName            = "mediaq.sock"
	defaultFileType              = "mp4"
	defaultLanguage              = "eng"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 14
	defaultNotifyRequestTimeout  = 10
	defaultMetadataProviderMovie = "nfo"
	defaultMetadataProviderTV    = "nfo"
)

// FileTypes lists the output container extensions mediaq writes.
var FileTypes = []string{"mp4", "m4v", "mov"}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Queue: Queue{
			FileType: defaultFileType,
		},
		Actions: Actions{
			MovieLanguage:  defaultLanguage,
			TVLanguage:     defaultLanguage,
			MovieProvider:  defaultMetadataProviderMovie,
			TVProvider:     defaultMetadataProviderTV,
			OrganizeGroups: true,
			FixFallbacks:   true,
		},
		Engine: Engine{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			NotifyQueue:    true,
			NotifyErrors:   true,
		},
	}
}
