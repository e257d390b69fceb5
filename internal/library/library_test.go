package library

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesflix/internal/core/domain"
	"vesflix/internal/encryption/service"
	"vesflix/internal/metadata/sqlite"
	"vesflix/internal/pkg/crypto/aes"
	"vesflix/internal/storage"
	"vesflix/internal/storage/local"
)

func newTestLibrary(t *testing.T) (*Library, *sqlite.Store, *local.Store) {
	t.Helper()
	ctx := context.Background()

	meta, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "meta.db"), sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	blobs, err := local.NewStore(t.TempDir())
	require.NoError(t, err)

	svc := service.NewService(aes.NewAESEncryptor(aes.KeySize))
	return New(meta, blobs, svc, zerolog.Nop()), meta, blobs
}

func TestIngestExportRoundTrip(t *testing.T) {
	lib, meta, blobs := newTestLibrary(t)
	ctx := context.Background()

	plaintext := make([]byte, 300_000)
	_, _ = rand.Read(plaintext)

	rec, err := lib.Ingest(ctx, IngestInput{Title: "clip", ThumbnailPath: "thumbs/clip.jpg", Source: bytes.NewReader(plaintext)})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Len(t, rec.EncryptionKey, 64)

	stored, err := meta.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, rec.StoragePath, stored.StoragePath)

	// IV plus padded ciphertext.
	size, err := blobs.Size(ctx, rec.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, int64(16+(len(plaintext)/16+1)*16), size)

	var out bytes.Buffer
	n, err := lib.Export(ctx, rec.ID, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(len(plaintext)), n)
	assert.True(t, bytes.Equal(plaintext, out.Bytes()))
}

func TestIngestWithExplicitID(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	rec, err := lib.Ingest(context.Background(), IngestInput{ID: "fixed-id", Title: "t", Source: bytes.NewReader([]byte("x"))})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", rec.ID)
	assert.Equal(t, "fi/fixed-id.enc", rec.StoragePath)
}

func TestIngestDuplicateKeepsOriginal(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	ctx := context.Background()

	_, err := lib.Ingest(ctx, IngestInput{ID: "dup", Title: "a", Source: bytes.NewReader([]byte("first"))})
	require.NoError(t, err)

	_, err = lib.Ingest(ctx, IngestInput{ID: "dup", Title: "b", Source: bytes.NewReader([]byte("second"))})
	assert.ErrorIs(t, err, domain.ErrConflict)

	var out bytes.Buffer
	_, err = lib.Export(ctx, "dup", &out)
	require.NoError(t, err)
	assert.Equal(t, "first", out.String())
}

type failingMeta struct{ *sqlite.Store }

func (failingMeta) Insert(context.Context, domain.VideoRecord) error { return errors.New("disk full") }

func TestIngestRemovesBlobWhenRecordFails(t *testing.T) {
	_, meta, blobs := newTestLibrary(t)
	svc := service.NewService(aes.NewAESEncryptor(aes.KeySize))
	lib := New(failingMeta{meta}, blobs, svc, zerolog.Nop())

	_, err := lib.Ingest(context.Background(), IngestInput{ID: "orphan", Title: "t", Source: bytes.NewReader([]byte("data"))})
	require.Error(t, err)

	_, err = blobs.Size(context.Background(), "or/orphan.enc")
	assert.ErrorIs(t, err, storage.ErrBlobNotFound)
}

func TestIngestRequiresSource(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	_, err := lib.Ingest(context.Background(), IngestInput{Title: "t"})
	assert.Error(t, err)
}

func TestExportUnknownVideo(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	_, err := lib.Export(context.Background(), "missing", &bytes.Buffer{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
