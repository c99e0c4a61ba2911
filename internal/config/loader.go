package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"scriptsync/pkg/logging"
)

const (
	userConfigDir  = ".config/scriptsync"
	configFileName = "config.yaml"
	envFileName    = ".env"

	// EnvPrefix prefixes every environment variable read by LoadConfig.
	EnvPrefix = "SCRIPTSYNC_"
)

// GetDefaultConfigPath returns ~/.config/scriptsync.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}

	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads configuration from a single directory, then applies the
// .env file found there and SCRIPTSYNC_* environment variables.
func LoadConfig(configPath string) (Config, error) {
	config := GetDefaultConfig()

	configFilePath := filepath.Join(configPath, configFileName)
	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, &ConfigurationError{FilePath: configFilePath, ErrorType: "io", Message: "failed to read config file", Err: err}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, &ConfigurationError{
				FilePath:    configFilePath,
				ErrorType:   "parse",
				Message:     "malformed YAML",
				Err:         err,
				Suggestions: []string{"Durations are written like 5m or 30s", "Check indentation of nested sections"},
			}
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	envFilePath := filepath.Join(configPath, envFileName)
	if err := godotenv.Load(envFilePath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, &ConfigurationError{FilePath: envFilePath, ErrorType: "parse", Message: "failed to load .env file", Err: err}
		}
	} else {
		logging.Debug("ConfigLoader", "Loaded environment from %s", envFilePath)
	}

	if err := applyEnv(&config, os.LookupEnv); err != nil {
		return Config{}, err
	}

	return config, nil
}

// applyEnv overrides config with SCRIPTSYNC_* variables found by lookup.
func applyEnv(config *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LOG_LEVEL":       &config.LogLevel,
		"STORAGE_BACKEND": &config.Storage.Backend,
		"STORAGE_DIR":     &config.Storage.Dir,
		"REDIS_URL":       &config.Storage.RedisURL,
		"REDIS_PREFIX":    &config.Storage.Prefix,
		"USERNAME":        &config.Credentials.Username,
		"PASSWORD":        &config.Credentials.Password,
		"BEARER_TOKEN":    &config.Credentials.BearerToken,
		"CREDENTIAL_FLAG": &config.Credentials.Flag,
		"HELPER_URL":      &config.Org.HelperURL,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"SESSION_TTL":       &config.Session.TTL,
		"HTTP_TIMEOUT":      &config.Session.HTTPTimeout,
		"RETRY_DELAY":       &config.Session.RetryDelay,
		"ORG_MAX_AGE":       &config.Org.MaxElementAge,
		"ORG_CLEANUP_EVERY": &config.Org.CleanupInterval,
	}
	for name, dst := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError(name, v, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"CSRF_RETRIES":           &config.Session.CSRFRetries,
		"VALIDATION_CONCURRENCY": &config.Org.ValidationConcurrency,
	}
	for name, dst := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(name, v, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "METRICS"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return envError("METRICS", v, err)
		}
		config.Metrics.Enabled = enabled
	}

	return nil
}

func envError(name, value string, err error) error {
	return &ConfigurationError{
		FilePath:  "$" + EnvPrefix + name,
		ErrorType: "parse",
		Message:   fmt.Sprintf("invalid value %q", value),
		Err:       err,
	}
}
