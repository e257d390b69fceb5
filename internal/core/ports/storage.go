package ports

import (
	"context"
	"io"

	"vesflix/internal/core/domain"
)

// MetadataStore resolves video ids. FindByID returns nil, nil for unknown ids.
type MetadataStore interface {
	FindByID(ctx context.Context, id string) (*domain.VideoRecord, error)
	Insert(ctx context.Context, rec domain.VideoRecord) error
	Close() error
}

// BlobStore reads and writes encrypted blobs. Reads are sequential from
// offset zero; Size is only used for reporting.
type BlobStore interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Put(ctx context.Context, path string, r io.Reader) error
	Size(ctx context.Context, path string) (int64, error)
	Delete(ctx context.Context, path string) error
}
