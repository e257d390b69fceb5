// Package library adds videos to the encrypted store and exports them back to
// plaintext files.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vesflix/internal/core/domain"
	"vesflix/internal/core/ports"
	"vesflix/internal/encryption/service"
)

type Library struct {
	meta   ports.MetadataStore
	blobs  ports.BlobStore
	cipher ports.CipherStream
	logger zerolog.Logger
}

func New(meta ports.MetadataStore, blobs ports.BlobStore, cipher ports.CipherStream, logger zerolog.Logger) *Library {
	return &Library{
		meta:   meta,
		blobs:  blobs,
		cipher: cipher,
		logger: logger,
	}
}

// IngestInput describes one video to add.
type IngestInput struct {
	ID            string // optional, generated when empty
	Title         string
	ThumbnailPath string
	Source        io.Reader
}

// Ingest encrypts the source under a fresh key, uploads the blob and records
// the video. An existing id is rejected before anything is uploaded; the blob
// is removed again if the record cannot be written.
func (l *Library) Ingest(ctx context.Context, in IngestInput) (*domain.VideoRecord, error) {
	if in.Source == nil {
		return nil, errors.New("ingest: source is required")
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	} else {
		existing, err := l.meta.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to look up video: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrConflict, id)
		}
	}

	out, err := l.cipher.Encrypt(ctx, domain.EncryptionInput{
		Reader:  in.Source,
		Options: domain.EncryptionOptions{ChunkSize: service.DefaultChunkSize},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt video: %w", err)
	}
	defer out.EncryptedReader.Close()

	rec := domain.VideoRecord{
		ID:            id,
		Title:         in.Title,
		StoragePath:   path.Join(id[:min(2, len(id))], id+".enc"),
		EncryptionKey: out.Key,
		ThumbnailPath: in.ThumbnailPath,
		CreatedAt:     time.Now().UTC(),
	}

	start := time.Now()
	if err := l.blobs.Put(ctx, rec.StoragePath, out.EncryptedReader); err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}

	if err := l.meta.Insert(ctx, rec); err != nil {
		if derr := l.blobs.Delete(ctx, rec.StoragePath); derr != nil {
			l.logger.Warn().Err(derr).Str("video_id", id).Msg("failed to remove orphaned blob")
		}
		return nil, fmt.Errorf("failed to record video: %w", err)
	}

	l.logger.Info().
		Str("video_id", id).
		Str("algorithm", out.Algorithm).
		Dur("duration", time.Since(start)).
		Msg("video ingested")
	return &rec, nil
}

// Export decrypts the stored video into dst and returns the plaintext size.
func (l *Library) Export(ctx context.Context, videoID string, dst io.Writer) (int64, error) {
	rec, err := l.meta.FindByID(ctx, videoID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up video: %w", err)
	}
	if rec == nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrNotFound, videoID)
	}

	src, err := l.blobs.Open(ctx, rec.StoragePath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	plain, err := l.cipher.Decrypt(ctx, src, rec.EncryptionKey)
	if err != nil {
		return 0, err
	}
	defer plain.Close()

	n, err := io.Copy(dst, plain)
	if err != nil {
		return n, fmt.Errorf("failed to write plaintext: %w", err)
	}
	return n, nil
}
