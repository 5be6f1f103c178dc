// Package prefs keeps key-value state in a single human-readable JSON file.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

const DefaultFile = "state.json"

// DefaultPath returns the state file under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "skillmatch", DefaultFile), nil
}

// FileStore holds every scope in memory and rewrites the whole file on each
// change. Values must be JSON documents.
type FileStore struct {
	path string

	mu   sync.Mutex
	data map[string]map[string]json.RawMessage
}

// Open loads path, starting empty when the file does not exist yet.
func Open(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &FileStore{path: path, data: map[string]map[string]json.RawMessage{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context, scope, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[scope][key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone([]byte(v)), true, nil
}

func (s *FileStore) Set(_ context.Context, scope, key string, value []byte) error {
	if !json.Valid(value) {
		return errors.New("prefs: value is not valid JSON")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.data[scope]
	if !ok {
		bucket = map[string]json.RawMessage{}
		s.data[scope] = bucket
	}
	bucket[key] = slices.Clone(value)
	return s.flush()
}

func (s *FileStore) Delete(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[scope][key]; !ok {
		return nil
	}
	delete(s.data[scope], key)
	if len(s.data[scope]) == 0 {
		delete(s.data, scope)
	}
	return s.flush()
}

func (s *FileStore) Close() error { return nil }

// flush writes the file atomically. Callers hold s.mu.
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
