package config

import "time"

// Config is the top-level configuration structure for scriptsync.
type Config struct {
	LogLevel    string            `yaml:"logLevel,omitempty"`
	Storage     StorageConfig     `yaml:"storage"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Session     SessionConfig     `yaml:"session"`
	Org         OrgConfig         `yaml:"org"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// StorageConfig selects where sessions and the org cache are persisted.
type StorageConfig struct {
	Backend  string `yaml:"backend,omitempty"`  // memory, file or redis (default: file)
	Dir      string `yaml:"dir,omitempty"`      // Directory for the file backend (default: ~/.config/scriptsync/state)
	RedisURL string `yaml:"redisUrl,omitempty"` // Connection URL for the redis backend
	Prefix   string `yaml:"prefix,omitempty"`   // Key prefix for the redis backend
}

// CredentialsConfig holds the login credentials for content servers.
// Either Username/Password or BearerToken is used, not both.
type CredentialsConfig struct {
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	BearerToken string `yaml:"bearerToken,omitempty"`
	Flag        string `yaml:"flag,omitempty"` // Selects an entry of Sets for logins

	// Sets holds additional username/password pairs keyed by credential flag.
	Sets map[string]CredentialSet `yaml:"sets,omitempty"`
}

// CredentialSet is one named username/password pair.
type CredentialSet struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HasBearerToken reports whether token authentication is configured.
func (c CredentialsConfig) HasBearerToken() bool {
	return c.BearerToken != ""
}

// SessionConfig tunes the session manager.
type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl,omitempty"`
	HTTPTimeout     time.Duration `yaml:"httpTimeout,omitempty"`
	RetryDelay      time.Duration `yaml:"retryDelay,omitempty"`
	FirstSweepDelay time.Duration `yaml:"firstSweepDelay,omitempty"`
	CSRFRetries     int           `yaml:"csrfRetries,omitempty"`
}

// OrgConfig tunes the org cache.
type OrgConfig struct {
	HelperURL             string        `yaml:"helperUrl,omitempty"` // Endpoint answering ?u=<U> with {"orgUrl": ...}
	MaxElementAge         time.Duration `yaml:"maxElementAge,omitempty"`
	CleanupInterval       time.Duration `yaml:"cleanupInterval,omitempty"`
	ValidationConcurrency int           `yaml:"validationConcurrency,omitempty"`
}

// MetricsConfig controls Prometheus collectors.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}
