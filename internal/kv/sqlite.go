package kv

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/skillmatch/internal/database"
	"github.com/jask/skillmatch/internal/database/repository"
)

// SQLite stores entries in the kv_entries table.
type SQLite struct {
	db   *sql.DB
	repo *repository.KVRepo
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db, repo: repository.NewKVRepo(db)}, nil
}

func (s *SQLite) Get(ctx context.Context, scope, key string) ([]byte, bool, error) {
	e, found, err := s.repo.Get(ctx, scope, key)
	if err != nil || !found {
		return nil, false, err
	}
	return e.Value, true, nil
}

func (s *SQLite) Set(ctx context.Context, scope, key string, value []byte) error {
	return s.repo.Upsert(ctx, repository.KVEntry{Scope: scope, Key: key, Value: value, UpdatedAt: database.Now()})
}

// SetMany writes entries in a single transaction.
func (s *SQLite) SetMany(ctx context.Context, entries []Entry) error {
	now := database.Now()
	rows := make([]repository.KVEntry, len(entries))
	for i, e := range entries {
		rows[i] = repository.KVEntry{Scope: e.Scope, Key: e.Key, Value: e.Value, UpdatedAt: now}
	}
	return s.repo.UpsertBatch(ctx, rows)
}

func (s *SQLite) Delete(ctx context.Context, scope, key string) error {
	return s.repo.Delete(ctx, scope, key)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
