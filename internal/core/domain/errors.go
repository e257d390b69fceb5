package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the video id is unknown to the metadata store.
	ErrNotFound = errors.New("video not found")
	// ErrInvalidRange is returned for malformed or unsatisfiable Range headers.
	ErrInvalidRange = errors.New("invalid range")
	// ErrCacheUnavailable marks cache store connectivity failures. It never
	// reaches a client.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrConflict is returned when inserting a video id that already exists.
	ErrConflict = errors.New("video already exists")
)

// CryptoError reports a malformed key, a truncated IV or corrupt ciphertext.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// NewCryptoError wraps err as a CryptoError for operation op.
func NewCryptoError(op string, err error) error {
	return &CryptoError{Op: op, Err: err}
}

// StreamIOError reports disk or network failures while moving bytes.
// HeadersSent tells the HTTP layer whether a status can still be written.
type StreamIOError struct {
	Op          string
	HeadersSent bool
	Err         error
}

func (e *StreamIOError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
}

func (e *StreamIOError) Unwrap() error { return e.Err }

// NewStreamIOError wraps err as a StreamIOError raised before headers were sent.
func NewStreamIOError(op string, err error) error {
	return &StreamIOError{Op: op, Err: err}
}

// IsCryptoError reports whether err carries a CryptoError.
func IsCryptoError(err error) bool {
	var ce *CryptoError
	return errors.As(err, &ce)
}
