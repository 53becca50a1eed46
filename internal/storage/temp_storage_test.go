package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempFileStore_SaveAndRemove(t *testing.T) {
	store, err := NewTempFileStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	path, n, err := store.Save(context.Background(), strings.NewReader("webm-bytes"), ".webm")
	require.NoError(t, err)

	assert.Equal(t, int64(10), n)
	assert.Equal(t, ".webm", filepath.Ext(path))
	assert.Equal(t, store.Dir(), filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "webm-bytes", string(data))

	require.NoError(t, store.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Second removal is a no-op
	assert.NoError(t, store.Remove(path))
}

func TestTempFileStore_UniqueNames(t *testing.T) {
	store, err := NewTempFileStore(t.TempDir())
	require.NoError(t, err)

	a, _, err := store.Save(context.Background(), strings.NewReader("a"), "mp4")
	require.NoError(t, err)
	b, _, err := store.Save(context.Background(), strings.NewReader("b"), "mp4")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, ".mp4", filepath.Ext(a))
}

func TestTempFileStore_EmptyUpload(t *testing.T) {
	store, err := NewTempFileStore(t.TempDir())
	require.NoError(t, err)

	path, n, err := store.Save(context.Background(), strings.NewReader(""), ".webm")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, store.Remove(path))
}

func TestTempFileStore_CanceledContextLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewTempFileStore(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = store.Save(ctx, strings.NewReader("data"), ".webm")
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
