package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"vesflix/internal/encryption/chunking"
)

// Validate checks cross-field constraints.
func Validate(cfg Config) error {
	var errs []error

	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if cfg.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}

	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.LocalRoot == "" {
			errs = append(errs, errors.New("storage.local_root is required for the local backend"))
		}
	case "s3":
		if cfg.Storage.Bucket == "" {
			errs = append(errs, errors.New("storage.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be local or s3, got %q", cfg.Storage.Backend))
	}

	switch cfg.Metadata.Driver {
	case "sqlite", "postgres":
		if cfg.Metadata.DSN == "" {
			errs = append(errs, errors.New("metadata.dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("metadata.driver must be sqlite or postgres, got %q", cfg.Metadata.Driver))
	}

	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}

	if cfg.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if cfg.Cache.MaxChunkBytes <= 0 {
		errs = append(errs, errors.New("cache.max_chunk_bytes must be positive"))
	}
	if cfg.Cache.MemoryMaxBytes <= 0 {
		errs = append(errs, errors.New("cache.memory_max_bytes must be positive"))
	}

	if cfg.Stream.BlockSize < chunking.MinBlockSize || cfg.Stream.BlockSize > chunking.MaxBlockSize {
		errs = append(errs, fmt.Errorf("stream.block_size must be between %d and %d", chunking.MinBlockSize, chunking.MaxBlockSize))
	}
	if cfg.Stream.CleanupFallback <= 0 {
		errs = append(errs, errors.New("stream.cleanup_fallback must be positive"))
	}
	if cfg.Stream.DecryptTimeout <= 0 {
		errs = append(errs, errors.New("stream.decrypt_timeout must be positive"))
	}
	if cfg.Stream.SweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Stream.SweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("stream.sweep_schedule: %w", err))
		}
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}
