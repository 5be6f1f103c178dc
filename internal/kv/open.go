package kv

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jask/skillmatch/internal/prefs"
)

// Options selects and locates a backend. Dir holds the backend's files.
type Options struct {
	Backend Backend
	Dir     string
	Logger  *zap.Logger
}

// Open opens the configured backend.
func Open(opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		s, err = openFile(filepath.Join(opts.Dir, prefs.DefaultFile))
	case BackendBadger:
		s, err = openBadger(BadgerConfig{Path: filepath.Join(opts.Dir, "badger"), SyncWrites: true, Logger: opts.Logger})
	case BackendSQLite, "":
		s, err = openSQLite(filepath.Join(opts.Dir, "skillmatch.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Backend, err)
	}
	return s, nil
}

func openFile(path string) (Store, error) {
	s, err := prefs.Open(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openBadger(cfg BadgerConfig) (Store, error) {
	s, err := OpenBadger(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openSQLite(path string) (Store, error) {
	s, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
