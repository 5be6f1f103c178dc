package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/skillmatch/internal/database"
	"github.com/jask/skillmatch/internal/database/repository"
)

func openTestDB(t *testing.T) *repository.KVRepo {
	t.Helper()
	return repository.NewKVRepo(openTestSQL(t))
}

func openTestSQL(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(db))
	require.NoError(t, database.RunMigrations(db))
	v, dirty, err := database.SchemaVersion(db)
	require.NoError(t, err)
	require.False(t, dirty)
	require.EqualValues(t, 1, v)
	return db
}

func TestKVRepoRoundTrip(t *testing.T) {
	t.Parallel()
	repo := openTestDB(t)
	ctx := context.Background()

	_, found, err := repo.Get(ctx, "mode:SEEKER", "session")
	require.NoError(t, err)
	require.False(t, found)

	now := database.Now()
	require.NoError(t, repo.Upsert(ctx, repository.KVEntry{Scope: "mode:SEEKER", Key: "session", Value: []byte(`{"a":1}`), UpdatedAt: now}))
	require.NoError(t, repo.Upsert(ctx, repository.KVEntry{Scope: "mode:SEEKER", Key: "session", Value: []byte(`{"a":2}`), UpdatedAt: now.Add(time.Second)}))
	require.NoError(t, repo.Upsert(ctx, repository.KVEntry{Scope: "mode:SEEKER", Key: "navigation", Value: []byte(`{}`), UpdatedAt: now}))

	e, found, err := repo.Get(ctx, "mode:SEEKER", "session")
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `{"a":2}`, string(e.Value))

	list, err := repo.ListScope(ctx, "mode:SEEKER")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "navigation", list[0].Key)

	require.NoError(t, repo.Delete(ctx, "mode:SEEKER", "navigation"))
	n, err := repo.DeleteScope(ctx, "mode:SEEKER")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestKVRepoUpsertBatch(t *testing.T) {
	t.Parallel()
	repo := openTestDB(t)
	ctx := context.Background()
	now := database.Now()

	require.NoError(t, repo.UpsertBatch(ctx, nil))
	require.NoError(t, repo.UpsertBatch(ctx, []repository.KVEntry{
		{Scope: "app", Key: "ui", Value: []byte(`{"theme":"dark"}`), UpdatedAt: now},
		{Scope: "mode:SEEKER", Key: "session", Value: []byte(`{}`), UpdatedAt: now},
		{Scope: "mode:SEEKER", Key: "navigation", Value: []byte(`[]`), UpdatedAt: now},
	}))
	list, err := repo.ListScope(ctx, "mode:SEEKER")
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, repo.UpsertBatch(ctx, []repository.KVEntry{
		{Scope: "app", Key: "ui", Value: []byte(`{"theme":"light"}`), UpdatedAt: now.Add(time.Second)},
	}))
	e, found, err := repo.Get(ctx, "app", "ui")
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `{"theme":"light"}`, string(e.Value))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	db := openTestSQL(t)
	repo := repository.NewKVRepo(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO kv_entries(scope, key, value) VALUES ('app', 'ui', x'00')`)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)
	_, found, err := repo.Get(ctx, "app", "ui")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, database.WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO kv_entries(scope, key, value) VALUES ('app', 'ui', x'00')`)
		return err
	}))
	_, found, err = repo.Get(ctx, "app", "ui")
	require.NoError(t, err)
	require.True(t, found)
}
