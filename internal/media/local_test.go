package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "uploads")

	url, err := store.Upload(context.Background(), "avatars", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/avatars/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	key, ok := store.KeyFromURL(url)
	require.True(t, ok)

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	require.NoError(t, store.Delete(context.Background(), key))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorContains(t, store.Delete(context.Background(), key), "file not found")
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "/uploads")

	err := store.Delete(context.Background(), "../../etc/passwd")
	assert.ErrorContains(t, err, "outside uploads directory")
}

func TestLocalStore_KeyFromURL(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "/uploads")

	_, ok := store.KeyFromURL("https://lh3.googleusercontent.com/a/photo")
	assert.False(t, ok)
	_, ok = store.KeyFromURL("/uploads/")
	assert.False(t, ok)

	key, ok := store.KeyFromURL("/uploads/avatars/x.png")
	assert.True(t, ok)
	assert.Equal(t, "avatars/x.png", key)
}
