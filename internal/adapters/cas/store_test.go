package cas_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/basis/internal/adapters/cas"
	"go.trai.ch/basis/internal/core/domain"
)

func TestStore_PutGet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()

	info := domain.BuildInfo{
		TaskName:   "clean:styles",
		InputHash:  "abc",
		OutputHash: "def",
		Outputs:    []string{"style.css"},
		Timestamp:  time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, store.Put(root, info))

	got, err := store.Get(root, "clean:styles")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, info, *got)

	info.InputHash = "xyz"
	require.NoError(t, store.Put(root, info))
	got, err = store.Get(root, "clean:styles")
	require.NoError(t, err)
	assert.Equal(t, "xyz", got.InputHash)

	entries, err := os.ReadDir(filepath.Join(root, domain.DefaultStorePath()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	got, err := cas.NewStore().Get(t.TempDir(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_GetCorrupt(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()
	require.NoError(t, store.Put(root, domain.BuildInfo{TaskName: "postcss"}))

	dir := filepath.Join(root, domain.DefaultStorePath())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte("{ invalid"), 0o600))

	_, err = store.Get(root, "postcss")
	require.ErrorIs(t, err, domain.ErrStoreUnmarshalFailed)
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()
	require.NoError(t, store.Put(root, domain.BuildInfo{TaskName: "svg"}))

	require.NoError(t, store.Clear(root))

	got, err := store.Get(root, "svg")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoDirExists(t, filepath.Join(root, domain.DefaultStorePath()))

	require.NoError(t, store.Clear(root), "clearing an empty store is not an error")
}
