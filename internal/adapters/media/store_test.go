package media_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/basis/internal/adapters/media"
	"go.trai.ch/basis/internal/core/domain"
)

func TestStore_AddGetList(t *testing.T) {
	ctx := context.Background()
	store, err := media.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	logo := domain.Attachment{URL: "http://testing.dev/wp-content/uploads/logo.svg", MimeType: "image/svg+xml", Title: "Logo"}
	photo := domain.Attachment{URL: "http://testing.dev/wp-content/uploads/photo.jpg", MimeType: "image/jpeg"}

	logoID, err := store.Add(ctx, logo)
	require.NoError(t, err)
	photoID, err := store.Add(ctx, photo)
	require.NoError(t, err)
	assert.Greater(t, photoID, logoID)

	got, err := store.Get(ctx, logoID)
	require.NoError(t, err)
	require.NotNil(t, got)
	logo.ID = logoID
	assert.Equal(t, logo, *got)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, logoID, all[0].ID)
	assert.Equal(t, photo.URL, all[1].URL)
}

func TestStore_GetMissing(t *testing.T) {
	store, err := media.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	got, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOpener_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".basis", "media.db")

	first, err := media.NewOpener().Open(ctx, path)
	require.NoError(t, err)
	id, err := first.Add(ctx, domain.Attachment{URL: "http://testing.dev/a.svg", MimeType: "image/svg+xml"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := media.NewOpener().Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	got, err := second.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "http://testing.dev/a.svg", got.URL)
}

func TestOpen_InvalidPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, writeFile(file))

	_, err := media.Open(context.Background(), filepath.Join(file, "media.db"))
	require.ErrorIs(t, err, domain.ErrAttachmentStoreFailed)
}
