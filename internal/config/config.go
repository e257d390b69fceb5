// Package config loads vesflix configuration from defaults, an optional YAML
// file, a .env file and VESFLIX_* environment variables, in that order of
// increasing priority.
package config

import (
	"time"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Metadata MetadataConfig `yaml:"metadata"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Stream   StreamConfig   `yaml:"stream"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	RateLimit       int           `yaml:"rate_limit"` // requests per minute per IP, 0 disables
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Backend      string `yaml:"backend"` // local | s3
	LocalRoot    string `yaml:"local_root"`
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Prefix       string `yaml:"prefix"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

type MetadataConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Addr              string        `yaml:"addr"`
	Password          string        `yaml:"password"`
	DB                int           `yaml:"db"`
	OpTimeout         time.Duration `yaml:"op_timeout"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

type CacheConfig struct {
	Enabled        bool          `yaml:"enabled"`
	TTL            time.Duration `yaml:"ttl"`
	MaxChunkBytes  int64         `yaml:"max_chunk_bytes"`
	KeyPrefix      string        `yaml:"key_prefix"`
	MemoryMaxBytes int64         `yaml:"memory_max_bytes"` // cap for the in-process store used without redis
}

type StreamConfig struct {
	TempDir         string        `yaml:"temp_dir"`
	BlockSize       int           `yaml:"block_size"`
	CleanupFallback time.Duration `yaml:"cleanup_fallback"`
	DecryptTimeout  time.Duration `yaml:"decrypt_timeout"`
	SweepSchedule   string        `yaml:"sweep_schedule"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Backend:   "local",
			LocalRoot: "data/blobs",
			Bucket:    "vesflix-video-storage",
			Region:    "us-east-1",
			Prefix:    "videos/",
		},
		Metadata: MetadataConfig{
			Driver: "sqlite",
			DSN:    "data/vesflix.db",
		},
		Redis: RedisConfig{
			Enabled:           true,
			Addr:              "localhost:6379",
			OpTimeout:         2 * time.Second,
			ReconnectInterval: 5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:        true,
			TTL:            time.Hour,
			MaxChunkBytes:  64 << 20,
			KeyPrefix:      "vesflix:",
			MemoryMaxBytes: 256 << 20,
		},
		Stream: StreamConfig{
			BlockSize:       64 * 1024,
			CleanupFallback: 2 * time.Hour,
			DecryptTimeout:  10 * time.Minute,
			SweepSchedule:   "@every 10m",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
