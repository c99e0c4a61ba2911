// Package config provides configuration management for scriptsync.
//
// Configuration is loaded from a single directory, ~/.config/scriptsync by
// default or the directory passed with --config-path. Values are layered:
//
//  1. built-in defaults (see GetDefaultConfig)
//  2. config.yaml in the configuration directory
//  3. a .env file in the configuration directory, if present
//  4. SCRIPTSYNC_* environment variables
//
// Variables already set in the environment win over the .env file.
//
// # Example config.yaml
//
//	storage:
//	  backend: redis
//	  redisUrl: redis://localhost:6379/0
//	credentials:
//	  username: deploy
//	session:
//	  ttl: 5m
//	  csrfRetries: 2
//	org:
//	  helperUrl: https://directory.example.com/lookup
//
// Secrets such as the password or bearer token are best kept in the
// environment (SCRIPTSYNC_PASSWORD, SCRIPTSYNC_BEARER_TOKEN) rather than in
// config.yaml.
package config
