package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesflix/internal/storage"
)

func TestStoreRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := bytes.Repeat([]byte("blob"), 1000)
	require.NoError(t, s.Put(ctx, "videos/abc.enc", bytes.NewReader(data)))

	size, err := s.Size(ctx, "videos/abc.enc")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	rc, err := s.Open(ctx, "videos/abc.enc")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, got)

	require.NoError(t, s.Delete(ctx, "videos/abc.enc"))
	_, err = s.Open(ctx, "videos/abc.enc")
	assert.ErrorIs(t, err, storage.ErrBlobNotFound)
}

func TestStoreMissingBlob(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Open(context.Background(), "nope.enc")
	assert.ErrorIs(t, err, storage.ErrBlobNotFound)
	_, err = s.Size(context.Background(), "nope.enc")
	assert.ErrorIs(t, err, storage.ErrBlobNotFound)
	assert.NoError(t, s.Delete(context.Background(), "nope.enc"))
}

func TestStoreConfinesPaths(t *testing.T) {
	root := t.TempDir()
	s, err := NewStore(root)
	require.NoError(t, err)

	full, err := s.resolve("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "etc", "passwd"), full)

	_, err = s.resolve("/")
	assert.Error(t, err)
}

func TestStorePutHonoursContext(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Put(ctx, "x.enc", bytes.NewReader([]byte("data")))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Size(context.Background(), "x.enc")
	assert.ErrorIs(t, err, storage.ErrBlobNotFound)
}

func TestStorePutLeavesNoPendingFiles(t *testing.T) {
	root := t.TempDir()
	s, err := NewStore(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.Put(ctx, "ab/x.enc", bytes.NewReader([]byte("data"))))
	require.NoError(t, s.Put(context.Background(), "ab/y.enc", bytes.NewReader([]byte("data"))))

	entries, err := os.ReadDir(filepath.Join(root, "ab"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "y.enc", entries[0].Name())
}
