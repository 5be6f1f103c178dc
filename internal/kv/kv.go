// Package kv is the durable key-value store the session state is written to.
// Values are opaque bytes grouped by scope.
package kv

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, scope, key string) ([]byte, bool, error)
	Set(ctx context.Context, scope, key string, value []byte) error
	Delete(ctx context.Context, scope, key string) error
	Close() error
}

// Entry is one value to write.
type Entry struct {
	Scope, Key string
	Value      []byte
}

// Batcher is implemented by stores that can write several entries
// atomically.
type Batcher interface {
	SetMany(ctx context.Context, entries []Entry) error
}

// SetAll writes entries through store's batch path when it has one, and one
// by one otherwise.
func SetAll(ctx context.Context, store Store, entries []Entry) error {
	if b, ok := store.(Batcher); ok {
		return b.SetMany(ctx, entries)
	}
	var errs []error
	for _, e := range entries {
		if err := store.Set(ctx, e.Scope, e.Key, e.Value); err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", e.Scope, e.Key, err))
		}
	}
	return errors.Join(errs...)
}

// Backend names a Store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendSQLite, BackendBadger, BackendFile, BackendMemory:
		return b, nil
	case "":
		return BackendSQLite, nil
	}
	return "", fmt.Errorf("unknown storage backend %q", s)
}

// Memory keeps everything in process memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: map[string]map[string][]byte{}}
}

func (m *Memory) Get(_ context.Context, scope, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[scope][key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *Memory) Set(_ context.Context, scope, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.data[scope]
	if !ok {
		bucket = map[string][]byte{}
		m.data[scope] = bucket
	}
	bucket[key] = slices.Clone(value)
	return nil
}

func (m *Memory) SetMany(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		bucket, ok := m.data[e.Scope]
		if !ok {
			bucket = map[string][]byte{}
			m.data[e.Scope] = bucket
		}
		bucket[e.Key] = slices.Clone(e.Value)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[scope], key)
	return nil
}

func (m *Memory) Close() error { return nil }
