package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"vesflix/internal/core/domain"
	"vesflix/internal/httprange"
	"vesflix/internal/metrics"
)

const (
	DefaultTTL       = time.Hour
	DefaultKeyPrefix = "vesflix:"
)

// Snapshot is a response-ready copy of a 206 reply for one exact range.
type Snapshot struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// ChunkCache is a cache-aside store of decrypted byte ranges keyed by video
// and range. A per-video registry lists cached ranges so that a request can
// be answered from any larger cached range that contains it.
//
// Every store failure is logged and treated as a miss or a no-op.
type ChunkCache struct {
	store  Store
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

type Option func(*ChunkCache)

// WithKeyPrefix namespaces all keys.
func WithKeyPrefix(prefix string) Option {
	return func(c *ChunkCache) {
		c.prefix = prefix
	}
}

func NewChunkCache(store Store, ttl time.Duration, logger zerolog.Logger, opts ...Option) *ChunkCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &ChunkCache{
		store:  store,
		ttl:    ttl,
		prefix: DefaultKeyPrefix,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the default entry lifetime.
func (c *ChunkCache) TTL() time.Duration {
	return c.ttl
}

func (c *ChunkCache) chunkKey(videoID string, r domain.ByteRange) string {
	return fmt.Sprintf("%svideo:%s:chunk:%d-%d", c.prefix, videoID, r.Start, r.End)
}

func (c *ChunkCache) responseKey(videoID string, r domain.ByteRange) string {
	return fmt.Sprintf("%svideo:%s:resp:%d-%d", c.prefix, videoID, r.Start, r.End)
}

func (c *ChunkCache) registryKey(videoID string) string {
	return fmt.Sprintf("%svideo:%s:chunks", c.prefix, videoID)
}

func (c *ChunkCache) sizeKey(videoID string) string {
	return fmt.Sprintf("%svideo:%s:size", c.prefix, videoID)
}

// Get returns the plaintext bytes for r, either from the exact entry or sliced
// out of a cached range that contains r.
func (c *ChunkCache) Get(ctx context.Context, videoID string, r domain.ByteRange) ([]byte, bool) {
	payload, ok := c.load(ctx, c.chunkKey(videoID, r), r.Len())
	if ok {
		metrics.ObserveCacheLookup(metrics.CacheExact)
		return payload, true
	}

	for _, cached := range c.containing(ctx, videoID, r) {
		// The registry can outlive its entries; load verifies the entry exists.
		payload, ok := c.load(ctx, c.chunkKey(videoID, cached), cached.Len())
		if !ok {
			continue
		}
		off := r.Start - cached.Start
		metrics.ObserveCacheLookup(metrics.CacheContained)
		return payload[off : off+r.Len()], true
	}

	metrics.ObserveCacheLookup(metrics.CacheMiss)
	return nil, false
}

// load fetches a payload and rejects it unless it has exactly want bytes.
func (c *ChunkCache) load(ctx context.Context, key string, want int64) ([]byte, bool) {
	payload, err := c.store.Get(ctx, key)
	if err != nil {
		c.observeErr(err, "get", key)
		return nil, false
	}
	if int64(len(payload)) != want {
		c.logger.Warn().
			Str("key", key).
			Int("len", len(payload)).
			Int64("want", want).
			Msg("cached chunk has wrong length, ignoring")
		return nil, false
	}
	return payload, true
}

// containing returns registry ranges that contain r, smallest first, skipping
// r itself (the exact key was already checked).
func (c *ChunkCache) containing(ctx context.Context, videoID string, r domain.ByteRange) []domain.ByteRange {
	registry, _ := c.registry(ctx, videoID)

	var out []domain.ByteRange
	for _, cached := range registry {
		if cached != r && cached.Contains(r) {
			out = append(out, cached)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Len() < out[j].Len() })
	return out
}

// registry loads the cached range list. ok is false when the store failed,
// as opposed to the registry simply not existing yet.
func (c *ChunkCache) registry(ctx context.Context, videoID string) ([]domain.ByteRange, bool) {
	key := c.registryKey(videoID)
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		c.observeErr(err, "get", key)
		return nil, errors.Is(err, ErrMiss)
	}

	var pairs [][2]int64
	if err := json.Unmarshal(raw, &pairs); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("corrupt chunk registry, ignoring")
		return nil, true
	}
	out := make([]domain.ByteRange, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, domain.ByteRange{Start: p[0], End: p[1]})
	}
	return out, true
}

// Snapshot returns the response-ready entry for an exact repeat of r.
func (c *ChunkCache) Snapshot(ctx context.Context, videoID string, r domain.ByteRange) (*Snapshot, bool) {
	key := c.responseKey(videoID, r)
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		c.observeErr(err, "get", key)
		return nil, false
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil || int64(len(snap.Body)) != r.Len() {
		c.logger.Warn().Str("key", key).Msg("corrupt response snapshot, ignoring")
		return nil, false
	}
	metrics.ObserveCacheLookup(metrics.CacheSnapshot)
	return &snap, true
}

// Put stores payload for r under its exact key, stores a 206 snapshot for an
// exact repeat, and records r in the video's registry. A ttl of zero uses the
// cache default. The registry append is read-modify-write without locking; a
// concurrent writer can lose a tuple or add a duplicate, both harmless.
func (c *ChunkCache) Put(ctx context.Context, videoID string, r domain.ByteRange, total int64, payload []byte, ttl time.Duration) {
	if int64(len(payload)) != r.Len() {
		c.logger.Warn().
			Str("video_id", videoID).
			Int64("range_start", r.Start).
			Int64("range_end", r.End).
			Int("len", len(payload)).
			Msg("refusing to cache chunk with mismatched length")
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	key := c.chunkKey(videoID, r)
	if err := c.store.SetEx(ctx, key, ttl, payload); err != nil {
		c.observeErr(err, "setex", key)
		metrics.ObserveCacheWrite(false)
		return
	}
	metrics.ObserveCacheWrite(true)

	decision := httprange.Decision{Kind: httprange.PartialContent, Range: r, Total: total}
	snap := Snapshot{Status: decision.Status(), Header: http.Header{}, Body: payload}
	decision.Headers(snap.Header)
	if raw, err := json.Marshal(snap); err == nil {
		rkey := c.responseKey(videoID, r)
		if err := c.store.SetEx(ctx, rkey, ttl, raw); err != nil {
			c.observeErr(err, "setex", rkey)
		}
	}

	c.appendRegistry(ctx, videoID, r, ttl)
}

func (c *ChunkCache) appendRegistry(ctx context.Context, videoID string, r domain.ByteRange, ttl time.Duration) {
	registry, ok := c.registry(ctx, videoID)
	if !ok {
		// Rewriting after a failed read would drop the ranges we could not see.
		return
	}
	pairs := make([][2]int64, 0, len(registry)+1)
	for _, existing := range registry {
		if existing == r {
			return
		}
		pairs = append(pairs, [2]int64{existing.Start, existing.End})
	}
	pairs = append(pairs, [2]int64{r.Start, r.End})

	raw, err := json.Marshal(pairs)
	if err != nil {
		return
	}
	key := c.registryKey(videoID)
	if err := c.store.SetEx(ctx, key, ttl, raw); err != nil {
		c.observeErr(err, "setex", key)
	}
}

// VideoSize returns the cached plaintext size of a video.
func (c *ChunkCache) VideoSize(ctx context.Context, videoID string) (int64, bool) {
	key := c.sizeKey(videoID)
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		c.observeErr(err, "get", key)
		return 0, false
	}
	size, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || size < 0 {
		return 0, false
	}
	return size, true
}

// PutVideoSize caches the plaintext size of a video.
func (c *ChunkCache) PutVideoSize(ctx context.Context, videoID string, size int64) {
	key := c.sizeKey(videoID)
	if err := c.store.SetEx(ctx, key, c.ttl, []byte(strconv.FormatInt(size, 10))); err != nil {
		c.observeErr(err, "setex", key)
	}
}

func (c *ChunkCache) observeErr(err error, op, key string) {
	if errors.Is(err, ErrMiss) {
		return
	}
	if op == "get" {
		metrics.ObserveCacheLookup(metrics.CacheError)
	}
	c.logger.Debug().Err(err).Str("op", op).Str("key", key).Msg("cache operation failed, continuing without cache")
}
