// Package cache provides the chunk cache and the key/value stores behind it.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by a Store when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the key/value contract the chunk cache needs. Every error other
// than ErrMiss is a store failure and is treated as a miss by callers.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetEx(ctx context.Context, key string, ttl time.Duration, value []byte) error
	// IsOpen reports whether the last round-trip succeeded.
	IsOpen() bool
	Connect(ctx context.Context) error
	Close() error
}

// noopStore caches nothing (useful for disabling caching).
type noopStore struct{}

// NewNoopStore returns a Store that always misses.
func NewNoopStore() Store {
	return noopStore{}
}

func (noopStore) Get(context.Context, string) ([]byte, error)                { return nil, ErrMiss }
func (noopStore) SetEx(context.Context, string, time.Duration, []byte) error { return nil }
func (noopStore) IsOpen() bool                                               { return true }
func (noopStore) Connect(context.Context) error                              { return nil }
func (noopStore) Close() error                                               { return nil }
