package app

import (
	"io"

	"scriptsync/internal/config"
)

// Config holds the application bootstrap settings.
type Config struct {
	// Debug enables debug logging regardless of the configured level.
	Debug bool

	// ConfigPath is the configuration directory. Empty means ~/.config/scriptsync.
	ConfigPath string

	// LogOutput receives log output. Nil means os.Stderr.
	LogOutput io.Writer

	// Settings, when set, is used instead of loading from ConfigPath.
	Settings *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}
