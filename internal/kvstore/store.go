// Package kvstore provides the durable key-value substrate that the session
// manager and org cache write through to.
//
// Values are stored as JSON documents. Three backends exist:
//   - Memory: process-local, used by tests and ephemeral CLI runs
//   - File: one JSON file per key under a private directory
//   - Redis: prefix-namespaced keys on a shared Redis instance
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("kvstore: store is closed")

// Store is an asynchronous-safe map of string keys to JSON-serializable values.
type Store interface {
	// Get decodes the value stored under key into dest.
	// It reports false, without error, if the key is absent.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value any) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key owned by the store.
	Clear(ctx context.Context) error

	// Keys returns every key currently stored, in no particular order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Options selects and configures a backend for New.
type Options struct {
	Backend string

	// Dir is the storage directory for the file backend.
	Dir string

	// RedisURL is a redis:// URL for the redis backend.
	RedisURL string

	// Prefix namespaces keys in the redis backend.
	Prefix string
}

// New constructs the backend named in opts.
func New(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return NewFile(opts.Dir)
	case BackendRedis:
		return NewRedis(ctx, opts.RedisURL, opts.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
