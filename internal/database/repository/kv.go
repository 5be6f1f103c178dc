package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jask/skillmatch/internal/database"
)

const upsertSQL = `
	INSERT INTO kv_entries(scope, key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(scope, key) DO UPDATE SET
	 value=excluded.value,
	 updated_at=excluded.updated_at;
	`

// KVRepo stores opaque values under (scope, key).
type KVRepo struct {
	db *sql.DB
}

func NewKVRepo(db *sql.DB) *KVRepo {
	return &KVRepo{db: db}
}

// Get returns the entry, or found=false when there is none.
func (r *KVRepo) Get(ctx context.Context, scope, key string) (KVEntry, bool, error) {
	e := KVEntry{Scope: scope, Key: key}
	err := r.db.QueryRowContext(ctx, `SELECT value, updated_at FROM kv_entries WHERE scope=? AND key=?`, scope, key).
		Scan(&e.Value, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return KVEntry{}, false, nil
	}
	if err != nil {
		return KVEntry{}, false, err
	}
	return e, true, nil
}

func (r *KVRepo) Upsert(ctx context.Context, e KVEntry) error {
	_, err := r.db.ExecContext(ctx, upsertSQL, e.Scope, e.Key, e.Value, e.UpdatedAt)
	return err
}

// UpsertBatch writes entries in one transaction: either all of them land or
// none do.
func (r *KVRepo) UpsertBatch(ctx context.Context, entries []KVEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Scope, e.Key, e.Value, e.UpdatedAt); err != nil {
				return fmt.Errorf("upsert %s/%s: %w", e.Scope, e.Key, err)
			}
		}
		return nil
	})
}

func (r *KVRepo) Delete(ctx context.Context, scope, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE scope=? AND key=?`, scope, key)
	return err
}

// ListScope returns every entry in scope ordered by key.
func (r *KVRepo) ListScope(ctx context.Context, scope string) ([]KVEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at FROM kv_entries WHERE scope=? ORDER BY key`, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []KVEntry
	for rows.Next() {
		e := KVEntry{Scope: scope}
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteScope removes every entry in scope.
func (r *KVRepo) DeleteScope(ctx context.Context, scope string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE scope=?`, scope)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
