package kvstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"scriptsync/pkg/logging"
)

// DefaultStorageDir is the default directory, relative to the user's home, for the file backend.
const DefaultStorageDir = ".config/scriptsync/state"

// fileRecord is the on-disk envelope. The original key is kept alongside the
// value because file names are derived from a hash of the key.
type fileRecord struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// File persists each key as a JSON file in a private directory.
//
// SECURITY: session records contain live session ids. Files are written with
// 0600 permissions and the directory is created with 0700.
type File struct {
	mu  sync.RWMutex
	dir string
}

// NewFile creates a file-backed store rooted at dir. An empty dir selects
// ~/.config/scriptsync/state.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, DefaultStorageDir)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &File{dir: dir}, nil
}

// Dir returns the storage directory.
func (f *File) Dir() string {
	return f.dir
}

// fileName derives a filesystem-safe name for key.
func (f *File) fileName(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(hash[:16])+".json")
}

func (f *File) Get(_ context.Context, key string, dest any) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rec, err := f.readRecord(f.fileName(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(rec.Value, dest); err != nil {
		return false, fmt.Errorf("failed to decode value for %q: %w", key, err)
	}
	return true, nil
}

func (f *File) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %q: %w", key, err)
	}
	data, err := json.MarshalIndent(fileRecord{Key: key, Value: raw}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record for %q: %w", key, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Write to a temp file and rename so readers never observe a partial record.
	path := f.fileName(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.fileName(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read storage directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		count++
	}

	logging.Debug("KVStore", "Cleared %d records from %s", count, f.dir)
	return nil
}

func (f *File) Keys(_ context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		rec, err := f.readRecord(filepath.Join(f.dir, entry.Name()))
		if err != nil {
			logging.Warn("KVStore", "Skipping unreadable record %s: %v", entry.Name(), err)
			continue
		}
		keys = append(keys, rec.Key)
	}
	return keys, nil
}

// Close is a no-op; every write is already on disk.
func (f *File) Close() error {
	return nil
}

func (f *File) readRecord(path string) (*fileRecord, error) {
	// #nosec G304 -- path is derived from a hash inside the store directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return &rec, nil
}
