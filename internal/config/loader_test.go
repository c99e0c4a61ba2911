package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, configFileName, `
logLevel: debug
storage:
  backend: redis
  redisUrl: redis://localhost:6379/1
credentials:
  username: deploy
session:
  ttl: 10m
  csrfRetries: 4
org:
  helperUrl: https://directory.example.com/lookup
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Storage.RedisURL)
	assert.Equal(t, "deploy", cfg.Credentials.Username)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 4, cfg.Session.CSRFRetries)
	assert.Equal(t, "https://directory.example.com/lookup", cfg.Org.HelperURL)

	// Untouched fields keep their defaults.
	defaults := GetDefaultConfig()
	assert.Equal(t, defaults.Session.HTTPTimeout, cfg.Session.HTTPTimeout)
	assert.Equal(t, defaults.Org.MaxElementAge, cfg.Org.MaxElementAge)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, configFileName, "session:\n  ttl: [not a duration\n")

	_, err := LoadConfig(dir)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "parse", cfgErr.ErrorType)
	assert.Contains(t, cfgErr.DetailedError(), "Suggestions:")
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, configFileName, "credentials:\n  username: from-file\n")
	t.Setenv("SCRIPTSYNC_USERNAME", "from-env")
	t.Setenv("SCRIPTSYNC_SESSION_TTL", "90s")
	t.Setenv("SCRIPTSYNC_METRICS", "true")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Credentials.Username)
	assert.Equal(t, 90*time.Second, cfg.Session.TTL)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, envFileName, "SCRIPTSYNC_PASSWORD=from-dotenv\nSCRIPTSYNC_USERNAME=dotenv-user\n")
	t.Setenv("SCRIPTSYNC_USERNAME", "env-user")
	// Registers cleanup for the value godotenv will set.
	t.Setenv("SCRIPTSYNC_PASSWORD", "")
	require.NoError(t, os.Unsetenv("SCRIPTSYNC_PASSWORD"))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-user", cfg.Credentials.Username)
	assert.Equal(t, "from-dotenv", cfg.Credentials.Password)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{name: "duration", env: map[string]string{"SCRIPTSYNC_HTTP_TIMEOUT": "soon"}, field: "HTTP_TIMEOUT"},
		{name: "int", env: map[string]string{"SCRIPTSYNC_CSRF_RETRIES": "two"}, field: "CSRF_RETRIES"},
		{name: "bool", env: map[string]string{"SCRIPTSYNC_METRICS": "maybe"}, field: "METRICS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			err := applyEnv(&cfg, func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			})

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "$"+EnvPrefix+tt.field, cfgErr.FilePath)
		})
	}
}
