// Package local stores encrypted blobs as files under a root directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"vesflix/internal/core/ports"
	"vesflix/internal/storage"
)

type Store struct {
	root string
}

var _ ports.BlobStore = (*Store)(nil)

// NewStore creates root if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("local storage root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

// resolve maps a blob path into root, rejecting paths that escape it.
func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.ToSlash(path))
	if clean == "/" {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	full := filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	return full, nil
}

func (s *Store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrBlobNotFound, path)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Put writes the blob to a pending file and atomically replaces the target,
// so readers never see a partial blob.
func (s *Store) Put(ctx context.Context, path string, r io.Reader) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("failed to create blob dir: %w", err)
	}

	pending, err := renameio.NewPendingFile(full,
		renameio.WithTempDir(filepath.Dir(full)),
		renameio.WithPermissions(0o640),
	)
	if err != nil {
		return fmt.Errorf("failed to create blob: %w", err)
	}
	// No-op once committed.
	defer pending.Cleanup()

	if _, err := io.Copy(pending, &ctxReader{ctx: ctx, r: r}); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to commit blob: %w", err)
	}
	return nil
}

func (s *Store) Size(_ context.Context, path string) (int64, error) {
	full, err := s.resolve(path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", storage.ErrBlobNotFound, path)
		}
		return 0, err
	}
	return info.Size(), nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
