package chunking

import (
	"errors"
	"fmt"
	"io"
)

const (
	// Block sizes for range extraction from decrypted plaintext
	DefaultBlockSize = 64 * 1024       // 64KB default block size
	MinBlockSize     = 4 * 1024        // 4KB minimum block size
	MaxBlockSize     = 8 * 1024 * 1024 // 8MB maximum block size
)

var ErrShortRange = errors.New("range extends past end of source")

// RangeReader reads the inclusive window [start, end] of src, never asking src
// for more than blockSize bytes at a time.
type RangeReader struct {
	src       io.ReaderAt
	offset    int64
	remaining int64
	blockSize int
}

func NewRangeReader(src io.ReaderAt, start, end int64, blockSize int) (*RangeReader, error) {
	if err := validateBlockSize(blockSize); err != nil {
		return nil, err
	}
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid range: %d-%d", start, end)
	}

	return &RangeReader{
		src:       src,
		offset:    start,
		remaining: end - start + 1,
		blockSize: blockSize,
	}, nil
}

func (r *RangeReader) Read(p []byte) (n int, err error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if len(p) > r.blockSize {
		p = p[:r.blockSize]
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}

	n, err = r.src.ReadAt(p, r.offset)
	r.offset += int64(n)
	r.remaining -= int64(n)
	if err == io.EOF {
		if r.remaining > 0 {
			return n, ErrShortRange
		}
		err = nil
	}
	return n, err
}

// WriteTo copies the remaining window to w one block at a time.
func (r *RangeReader) WriteTo(w io.Writer) (int64, error) {
	size := r.blockSize
	if int64(size) > r.remaining {
		size = int(r.remaining)
	}
	buf := make([]byte, size)

	var written int64
	for r.remaining > 0 {
		n, err := r.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return written, err
		}
	}
	return written, nil
}

// Remaining reports how many bytes of the window are still unread.
func (r *RangeReader) Remaining() int64 {
	return r.remaining
}

// ReadRange returns exactly end-start+1 bytes from src.
func ReadRange(src io.ReaderAt, start, end int64, blockSize int) ([]byte, error) {
	reader, err := NewRangeReader(src, start, end, blockSize)
	if err != nil {
		return nil, err
	}

	out := make([]byte, end-start+1)
	if _, err := io.ReadFull(reader, out); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, ErrShortRange
		}
		return nil, err
	}
	return out, nil
}

func validateBlockSize(size int) error {
	if size < MinBlockSize || size > MaxBlockSize {
		return fmt.Errorf("invalid block size: must be between %d and %d bytes", MinBlockSize, MaxBlockSize)
	}
	return nil
}
