// Package bootstrap builds the runtime dependencies from configuration. It is
// shared by the server and the command line tools.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog"

	"vesflix/internal/cache"
	"vesflix/internal/config"
	"vesflix/internal/core/ports"
	"vesflix/internal/encryption/service"
	"vesflix/internal/metadata"
	"vesflix/internal/pkg/crypto/aes"
	"vesflix/internal/storage/local"
	"vesflix/internal/storage/s3"
)

// BlobStore opens the configured blob backend.
func BlobStore(ctx context.Context, cfg config.StorageConfig) (ports.BlobStore, error) {
	switch cfg.Backend {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		store, err := s3.NewClient(ctx, awsCfg,
			s3.WithBucket(cfg.Bucket),
			s3.WithPrefix(cfg.Prefix),
			s3.WithEndpoint(cfg.Endpoint, cfg.UsePathStyle),
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "local", "":
		store, err := local.NewStore(cfg.LocalRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Metadata opens the configured metadata store.
func Metadata(ctx context.Context, cfg config.MetadataConfig) (metadata.Store, error) {
	return metadata.Open(ctx, cfg.Driver, cfg.DSN)
}

// CacheStore returns a Redis store when enabled, otherwise an in-process one.
// A Redis server that is down at startup is not fatal: the store degrades to
// misses and reconnects later. With caching off every lookup misses.
func CacheStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) cache.Store {
	if !cfg.Cache.Enabled {
		logger.Info().Msg("chunk cache disabled")
		return cache.NewNoopStore()
	}
	if !cfg.Redis.Enabled {
		logger.Info().Int64("max_bytes", cfg.Cache.MemoryMaxBytes).Msg("redis disabled, using in-process chunk cache")
		return cache.NewMemoryStore(time.Minute, cache.WithMaxBytes(cfg.Cache.MemoryMaxBytes))
	}
	return redisStore(ctx, cfg.Redis, logger)
}

func redisStore(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) cache.Store {

	store := cache.NewRedisStore(cache.RedisConfig{
		Addr:              cfg.Addr,
		Password:          cfg.Password,
		DB:                cfg.DB,
		OpTimeout:         cfg.OpTimeout,
		ReconnectInterval: cfg.ReconnectInterval,
	}, logger)
	if err := store.Connect(ctx); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unreachable at startup, serving without cache")
	}
	return store
}

// Cipher returns the AES-256-CBC stream service.
func Cipher() ports.CipherStream {
	return service.NewService(aes.NewAESEncryptor(aes.KeySize))
}
