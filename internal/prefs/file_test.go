package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStorePersistsAcrossOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "app", "ui", []byte(`{"activeMode":"RECRUITER"}`)))
	require.NoError(t, s.Set(ctx, "mode:SEEKER", "session", []byte(`{"selectedCriteria":["go"]}`)))
	require.Error(t, s.Set(ctx, "app", "broken", []byte("not json")))

	reopened, err := Open(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "app", "ui")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"activeMode":"RECRUITER"}`, string(v))

	require.NoError(t, reopened.Delete(ctx, "app", "ui"))
	_, ok, err = reopened.Get(ctx, "app", "ui")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := Open(path)
	require.Error(t, err)
}
