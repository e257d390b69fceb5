package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesflix/internal/cache"
	"vesflix/internal/config"
	"vesflix/internal/storage/local"
)

func TestBlobStoreLocal(t *testing.T) {
	store, err := BlobStore(context.Background(), config.StorageConfig{Backend: "local", LocalRoot: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &local.Store{}, store)
}

func TestBlobStoreUnknown(t *testing.T) {
	_, err := BlobStore(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestMetadataSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := Metadata(ctx, config.MetadataConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "m.db")})
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(ctx))
}

func TestCacheStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	store := CacheStore(context.Background(), cacheConfig(config.RedisConfig{Enabled: true, Addr: mr.Addr()}), zerolog.Nop())
	defer store.Close()

	assert.IsType(t, &cache.RedisStore{}, store)
	assert.True(t, store.IsOpen())
}

func TestCacheStoreRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	store := CacheStore(context.Background(), cacheConfig(config.RedisConfig{
		Enabled:   true,
		Addr:      addr,
		OpTimeout: 200 * time.Millisecond,
	}), zerolog.Nop())
	defer store.Close()
	assert.False(t, store.IsOpen())
}

func TestCacheStoreMemory(t *testing.T) {
	store := CacheStore(context.Background(), cacheConfig(config.RedisConfig{Enabled: false}), zerolog.Nop())
	defer store.Close()
	assert.IsType(t, &cache.MemoryStore{}, store)
}

func TestCacheStoreMemoryHonoursByteCap(t *testing.T) {
	cfg := cacheConfig(config.RedisConfig{Enabled: false})
	cfg.Cache.MemoryMaxBytes = 8
	store := CacheStore(context.Background(), cfg, zerolog.Nop())
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SetEx(ctx, "small", time.Minute, []byte("1234")))
	require.NoError(t, store.SetEx(ctx, "big", time.Minute, []byte("123456789")))

	_, err := store.Get(ctx, "big")
	assert.ErrorIs(t, err, cache.ErrMiss)
	got, err := store.Get(ctx, "small")
	require.NoError(t, err)
	assert.Equal(t, []byte("1234"), got)
}

func TestCacheStoreDisabled(t *testing.T) {
	cfg := cacheConfig(config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"})
	cfg.Cache.Enabled = false

	store := CacheStore(context.Background(), cfg, zerolog.Nop())
	defer store.Close()

	_, err := store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func cacheConfig(redis config.RedisConfig) config.Config {
	cfg := config.Defaults()
	cfg.Redis = redis
	return cfg
}
