package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vesflix/internal/log"
)

// envReader applies VESFLIX_* overrides and logs where each value came from.
// Invalid values keep the current setting and are reported as warnings.
type envReader struct {
	logger zerolog.Logger
}

func newEnvReader() envReader {
	return envReader{logger: log.WithComponent("config")}
}

func (e envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e envReader) setString(key string, dst *string) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	lower := strings.ToLower(key)
	if strings.Contains(lower, "password") || strings.Contains(lower, "dsn") {
		e.logger.Debug().Str("key", key).Bool("sensitive", true).Msg("using environment variable")
	} else {
		e.logger.Debug().Str("key", key).Str("value", v).Msg("using environment variable")
	}
	*dst = v
}

func (e envReader) setInt(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.logger.Warn().Str("key", key).Str("value", v).Msg("invalid integer in environment, keeping current value")
		return
	}
	*dst = i
}

func (e envReader) setInt64(key string, dst *int64) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.logger.Warn().Str("key", key).Str("value", v).Msg("invalid integer in environment, keeping current value")
		return
	}
	*dst = i
}

func (e envReader) setBool(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.logger.Warn().Str("key", key).Str("value", v).Msg("invalid boolean in environment, keeping current value")
		return
	}
	*dst = b
}

func (e envReader) setDuration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.logger.Warn().Str("key", key).Str("value", v).Msg("invalid duration in environment, keeping current value")
		return
	}
	*dst = d
}

func (e envReader) apply(cfg *Config) {
	e.setString("VESFLIX_LISTEN_ADDR", &cfg.Server.ListenAddr)
	e.setInt("VESFLIX_RATE_LIMIT", &cfg.Server.RateLimit)
	e.setDuration("VESFLIX_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	e.setString("VESFLIX_STORAGE_BACKEND", &cfg.Storage.Backend)
	e.setString("VESFLIX_STORAGE_LOCAL_ROOT", &cfg.Storage.LocalRoot)
	e.setString("VESFLIX_S3_BUCKET", &cfg.Storage.Bucket)
	e.setString("VESFLIX_S3_REGION", &cfg.Storage.Region)
	e.setString("VESFLIX_S3_PREFIX", &cfg.Storage.Prefix)
	e.setString("VESFLIX_S3_ENDPOINT", &cfg.Storage.Endpoint)
	e.setBool("VESFLIX_S3_PATH_STYLE", &cfg.Storage.UsePathStyle)

	e.setString("VESFLIX_METADATA_DRIVER", &cfg.Metadata.Driver)
	e.setString("VESFLIX_METADATA_DSN", &cfg.Metadata.DSN)

	e.setBool("VESFLIX_REDIS_ENABLED", &cfg.Redis.Enabled)
	e.setString("VESFLIX_REDIS_ADDR", &cfg.Redis.Addr)
	e.setString("VESFLIX_REDIS_PASSWORD", &cfg.Redis.Password)
	e.setInt("VESFLIX_REDIS_DB", &cfg.Redis.DB)
	e.setDuration("VESFLIX_REDIS_OP_TIMEOUT", &cfg.Redis.OpTimeout)
	e.setDuration("VESFLIX_REDIS_RECONNECT_INTERVAL", &cfg.Redis.ReconnectInterval)

	e.setBool("VESFLIX_CACHE_ENABLED", &cfg.Cache.Enabled)
	e.setDuration("VESFLIX_CACHE_TTL", &cfg.Cache.TTL)
	e.setInt64("VESFLIX_CACHE_MAX_CHUNK_BYTES", &cfg.Cache.MaxChunkBytes)
	e.setString("VESFLIX_CACHE_KEY_PREFIX", &cfg.Cache.KeyPrefix)
	e.setInt64("VESFLIX_CACHE_MEMORY_MAX_BYTES", &cfg.Cache.MemoryMaxBytes)

	e.setString("VESFLIX_TEMP_DIR", &cfg.Stream.TempDir)
	e.setInt("VESFLIX_BLOCK_SIZE", &cfg.Stream.BlockSize)
	e.setDuration("VESFLIX_CLEANUP_FALLBACK", &cfg.Stream.CleanupFallback)
	e.setDuration("VESFLIX_DECRYPT_TIMEOUT", &cfg.Stream.DecryptTimeout)
	e.setString("VESFLIX_SWEEP_SCHEDULE", &cfg.Stream.SweepSchedule)

	e.setString("VESFLIX_LOG_LEVEL", &cfg.Log.Level)
}
