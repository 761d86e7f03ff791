package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header plus IHDR, enough for content sniffing
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89,
}

func TestDetectImage(t *testing.T) {
	ext, err := DetectImage(pngBytes)
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)

	_, err = DetectImage([]byte("plain text, not a picture"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = DetectImage(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestDiskStoreSaveListDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewDiskStore(root, "/media")
	require.NoError(t, err)
	ctx := context.Background()

	key, err := s.Save(ctx, "ads", pngBytes, ".png")
	require.NoError(t, err)
	assert.Regexp(t, `^ads/[0-9a-z]+\.png$`, key)
	assert.Equal(t, "/media/"+key, s.URL(key))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	objects, err := s.List(ctx, "ads")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, key, objects[0].Key)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	objects, err = s.List(ctx, "ads")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestDiskStoreListMissingDir(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), "/media/")
	require.NoError(t, err)

	objects, err := s.List(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestDiskStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), "/media/")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(context.Background(), "../etc/passwd"), ErrInvalidKey)
	_, err = s.List(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestPurgeOrphans(t *testing.T) {
	root := t.TempDir()
	s, err := NewDiskStore(root, "/media/")
	require.NoError(t, err)
	ctx := context.Background()

	kept, err := s.Save(ctx, "ads", pngBytes, ".png")
	require.NoError(t, err)
	orphan, err := s.Save(ctx, "ads", pngBytes, ".png")
	require.NoError(t, err)
	fresh, err := s.Save(ctx, "ads", pngBytes, ".png")
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	for _, key := range []string{kept, orphan} {
		require.NoError(t, os.Chtimes(filepath.Join(root, filepath.FromSlash(key)), old, old))
	}

	removed, err := PurgeOrphans(ctx, s, "ads", []string{kept}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	objects, err := s.List(ctx, "ads")
	require.NoError(t, err)
	var keys []string
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	assert.ElementsMatch(t, []string{kept, fresh}, keys)
}
