package cache

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesflix/internal/core/domain"
)

func newTestChunkCache(t *testing.T) (*miniredis.Miniredis, *ChunkCache) {
	t.Helper()
	mr, store := setupMiniRedis(t)
	return mr, NewChunkCache(store, time.Hour, zerolog.Nop())
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

func TestChunkCache_ExactHit(t *testing.T) {
	_, c := newTestChunkCache(t)
	ctx := context.Background()
	r := domain.ByteRange{Start: 0, End: 999}
	payload := randomBytes(1000)

	c.Put(ctx, "v1", r, 5000, payload, 0)

	got, ok := c.Get(ctx, "v1", r)
	require.True(t, ok)
	assert.Equal(t, payload, got)

	_, ok = c.Get(ctx, "other-video", r)
	assert.False(t, ok)
}

func TestChunkCache_ContainmentLaw(t *testing.T) {
	_, c := newTestChunkCache(t)
	ctx := context.Background()
	payload := randomBytes(1000)

	c.Put(ctx, "v1", domain.ByteRange{Start: 0, End: 999}, 1000, payload, 0)

	got, ok := c.Get(ctx, "v1", domain.ByteRange{Start: 100, End: 500})
	require.True(t, ok)
	assert.Equal(t, payload[100:501], got)

	// Edges of the cached range.
	got, ok = c.Get(ctx, "v1", domain.ByteRange{Start: 999, End: 999})
	require.True(t, ok)
	assert.Equal(t, payload[999:], got)

	// Overlapping but not contained is a miss.
	_, ok = c.Get(ctx, "v1", domain.ByteRange{Start: 900, End: 1100})
	assert.False(t, ok)
}

func TestChunkCache_ContainmentPrefersSmallestRange(t *testing.T) {
	mr, c := newTestChunkCache(t)
	ctx := context.Background()
	video := randomBytes(10_000)

	c.Put(ctx, "v1", domain.ByteRange{Start: 0, End: 9999}, 10_000, video, 0)
	c.Put(ctx, "v1", domain.ByteRange{Start: 1000, End: 1999}, 10_000, video[1000:2000], 0)

	// Drop the big entry; the small one still answers.
	mr.Del(c.chunkKey("v1", domain.ByteRange{Start: 0, End: 9999}))
	got, ok := c.Get(ctx, "v1", domain.ByteRange{Start: 1500, End: 1600})
	require.True(t, ok)
	assert.Equal(t, video[1500:1601], got)
}

func TestChunkCache_RegistryOutlivesEntry(t *testing.T) {
	mr, c := newTestChunkCache(t)
	ctx := context.Background()
	r := domain.ByteRange{Start: 0, End: 999}

	c.Put(ctx, "v1", r, 1000, randomBytes(1000), 0)
	mr.Del(c.chunkKey("v1", r))

	require.True(t, mr.Exists(c.registryKey("v1")))
	_, ok := c.Get(ctx, "v1", domain.ByteRange{Start: 10, End: 20})
	assert.False(t, ok, "registry hit must be verified against the entry")
}

func TestChunkCache_RegistryDedup(t *testing.T) {
	mr, c := newTestChunkCache(t)
	ctx := context.Background()
	r := domain.ByteRange{Start: 0, End: 9}

	c.Put(ctx, "v1", r, 100, randomBytes(10), 0)
	c.Put(ctx, "v1", r, 100, randomBytes(10), 0)
	c.Put(ctx, "v1", domain.ByteRange{Start: 10, End: 19}, 100, randomBytes(10), 0)

	raw, err := mr.Get(c.registryKey("v1"))
	require.NoError(t, err)
	var pairs [][2]int64
	require.NoError(t, json.Unmarshal([]byte(raw), &pairs))
	assert.Equal(t, [][2]int64{{0, 9}, {10, 19}}, pairs)
}

func TestChunkCache_RejectsMismatchedPayload(t *testing.T) {
	mr, c := newTestChunkCache(t)
	ctx := context.Background()
	r := domain.ByteRange{Start: 0, End: 99}

	c.Put(ctx, "v1", r, 100, randomBytes(50), 0)
	assert.False(t, mr.Exists(c.chunkKey("v1", r)))

	// A corrupt stored entry is not served either.
	require.NoError(t, mr.Set(c.chunkKey("v1", r), "short"))
	_, ok := c.Get(ctx, "v1", r)
	assert.False(t, ok)
}

func TestChunkCache_Snapshot(t *testing.T) {
	_, c := newTestChunkCache(t)
	ctx := context.Background()
	r := domain.ByteRange{Start: 0, End: 499_999}
	payload := randomBytes(500_000)

	_, ok := c.Snapshot(ctx, "v1", r)
	assert.False(t, ok)

	c.Put(ctx, "v1", r, 1_000_000, payload, 0)
	snap, ok := c.Snapshot(ctx, "v1", r)
	require.True(t, ok)
	assert.Equal(t, http.StatusPartialContent, snap.Status)
	assert.Equal(t, "bytes 0-499999/1000000", snap.Header.Get("Content-Range"))
	assert.Equal(t, "500000", snap.Header.Get("Content-Length"))
	assert.Equal(t, payload, snap.Body)
}

func TestChunkCache_TTLExpiry(t *testing.T) {
	mr, c := newTestChunkCache(t)
	ctx := context.Background()
	r := domain.ByteRange{Start: 0, End: 9}

	c.Put(ctx, "v1", r, 10, randomBytes(10), time.Minute)
	c.PutVideoSize(ctx, "v1", 10)

	mr.FastForward(2 * time.Minute)
	_, ok := c.Get(ctx, "v1", r)
	assert.False(t, ok)
	_, ok = c.Snapshot(ctx, "v1", r)
	assert.False(t, ok)

	// Size uses the cache default TTL (one hour) and is still there.
	size, ok := c.VideoSize(ctx, "v1")
	assert.True(t, ok)
	assert.Equal(t, int64(10), size)
}

func TestChunkCache_VideoSize(t *testing.T) {
	mr, c := newTestChunkCache(t)
	ctx := context.Background()

	_, ok := c.VideoSize(ctx, "v1")
	assert.False(t, ok)

	c.PutVideoSize(ctx, "v1", 1_000_000)
	size, ok := c.VideoSize(ctx, "v1")
	require.True(t, ok)
	assert.Equal(t, int64(1_000_000), size)

	require.NoError(t, mr.Set(c.sizeKey("v2"), "garbage"))
	_, ok = c.VideoSize(ctx, "v2")
	assert.False(t, ok)
}

func TestChunkCache_OutageDegradesToMiss(t *testing.T) {
	mr, c := newTestChunkCache(t)
	ctx := context.Background()
	r := domain.ByteRange{Start: 0, End: 9}

	c.Put(ctx, "v1", r, 10, randomBytes(10), 0)
	mr.SetError("ERR simulated outage")

	assert.NotPanics(t, func() {
		_, ok := c.Get(ctx, "v1", r)
		assert.False(t, ok)
		_, ok = c.Snapshot(ctx, "v1", r)
		assert.False(t, ok)
		_, ok = c.VideoSize(ctx, "v1")
		assert.False(t, ok)
		c.Put(ctx, "v1", domain.ByteRange{Start: 0, End: 4}, 10, randomBytes(5), 0)
		c.PutVideoSize(ctx, "v1", 10)
	})

	mr.SetError("")
	_, ok := c.Get(ctx, "v1", r)
	assert.True(t, ok, "cache recovers once the store is back")
}

func TestChunkCache_MemoryStore(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	c := NewChunkCache(store, 0, zerolog.Nop(), WithKeyPrefix("test:"))
	ctx := context.Background()
	payload := randomBytes(100)

	assert.Equal(t, DefaultTTL, c.TTL())
	c.Put(ctx, "v1", domain.ByteRange{Start: 0, End: 99}, 100, payload, 0)
	got, ok := c.Get(ctx, "v1", domain.ByteRange{Start: 50, End: 59})
	require.True(t, ok)
	assert.Equal(t, payload[50:60], got)
}

func TestChunkCache_ConcurrentPuts(t *testing.T) {
	_, c := newTestChunkCache(t)
	ctx := context.Background()
	video := randomBytes(64 * 100)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := domain.ByteRange{Start: int64(i * 100), End: int64(i*100 + 99)}
			c.Put(ctx, "v1", r, int64(len(video)), video[r.Start:r.End+1], 0)
		}(i)
	}
	wg.Wait()

	// Registry appends race, but every exact entry is present and correct.
	for i := 0; i < 16; i++ {
		r := domain.ByteRange{Start: int64(i * 100), End: int64(i*100 + 99)}
		got, ok := c.Get(ctx, "v1", r)
		require.True(t, ok)
		assert.Equal(t, video[r.Start:r.End+1], got)
	}
}
