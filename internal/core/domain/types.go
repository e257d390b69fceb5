// vesflix/internal/core/domain/types.go
package domain

import (
	"io"
	"time"
)

// VideoRecord is the metadata row for one stored video. EncryptionKey holds the
// hex-encoded 32-byte key and must never be logged or written to the cache.
type VideoRecord struct {
	ID            string
	Title         string
	StoragePath   string
	EncryptionKey string
	ThumbnailPath string
	CreatedAt     time.Time
}

// ByteRange is an inclusive [Start, End] window into the plaintext.
type ByteRange struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the range.
func (r ByteRange) Len() int64 {
	return r.End - r.Start + 1
}

// Contains reports whether other lies fully inside r.
func (r ByteRange) Contains(other ByteRange) bool {
	return r.Start <= other.Start && other.End <= r.End
}

type EncryptionOptions struct {
	ChunkSize int
	KeySize   int
}

type EncryptionInput struct {
	Reader io.Reader
	// Key is the hex-encoded key to encrypt under. Empty means generate one.
	Key     string
	Options EncryptionOptions
}

type EncryptionOutput struct {
	EncryptedReader io.ReadCloser
	Key             string
	IV              []byte
	Algorithm       string
	CreatedAt       time.Time
}
