// Package file provides a key-value Storage persisted as one JSON file:
//
//	{"version": 1, "entries": {"observers": "...", "tleData": "..."}}
//
// Every Set rewrites the whole file through a temp file and rename, after
// re-reading the temp file to confirm it parses.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const currentVersion = 1

// errUnparsable marks a storage file that exists but is not valid JSON.
var errUnparsable = errors.New("storage file is not valid JSON")

type envelope struct {
	Version int               `json:"version"`
	Entries map[string]string `json:"entries"`
}

// Store is a file-backed Storage. The file is read on the first access and
// cached; the process is assumed to be its only writer.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]string
}

// NewStore returns a store for path. The file need not exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return "", false, err
	}
	v, ok := s.entries[key]
	return v, ok, nil
}

// Set stores value under key and flushes the file. A file that does not parse
// is copied to BackupPath and replaced; any other load failure, including a
// newer version, is returned and the file is left alone.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		if !errors.Is(err, errUnparsable) {
			return err
		}
		if err := s.backupLocked(); err != nil {
			return err
		}
		s.entries = make(map[string]string)
	}

	prev, had := s.entries[key]
	s.entries[key] = value
	if err := s.flushLocked(); err != nil {
		if had {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}
		return err
	}
	return nil
}

// BackupPath is where an unparsable file is kept before Set replaces it.
func (s *Store) BackupPath() string { return s.path + ".corrupt.bak" }

// Close is a no-op; every Set is already durable.
func (s *Store) Close() error { return nil }

func (s *Store) loadLocked() error {
	if s.entries != nil {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.entries = make(map[string]string)
			return nil
		}
		return fmt.Errorf("read storage file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("parse storage file: %w: %v", errUnparsable, err)
	}
	if env.Version > currentVersion {
		return fmt.Errorf("storage file version %d is newer than supported version %d", env.Version, currentVersion)
	}
	if env.Entries == nil {
		env.Entries = make(map[string]string)
	}
	s.entries = env.Entries
	return nil
}

func (s *Store) backupLocked() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read storage file for backup: %w", err)
	}
	if err := os.WriteFile(s.BackupPath(), data, 0o644); err != nil {
		return fmt.Errorf("back up storage file: %w", err)
	}
	return nil
}

func (s *Store) flushLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(envelope{Version: currentVersion, Entries: s.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storage file: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	check, err := os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("read-back temp file: %w", err)
	}
	var verify envelope
	if err := json.Unmarshal(check, &verify); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("round-trip validation failed: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename storage file: %w", err)
	}
	return nil
}
