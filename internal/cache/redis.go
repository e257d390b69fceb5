package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vesflix/internal/core/domain"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number

	OpTimeout         time.Duration // per-command timeout, default 2s
	ReconnectInterval time.Duration // minimum gap between reconnect attempts
}

// RedisStore is a Redis-backed Store. It never blocks a request on a dead
// server for longer than one op timeout: after a failure it reports itself
// closed and only retries the connection once per ReconnectInterval.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
	cfg    RedisConfig

	open        atomic.Bool
	mu          sync.Mutex
	lastAttempt time.Time
}

// NewRedisStore creates the client without dialing. Call Connect to verify
// connectivity; a failed Connect is not fatal.
func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) *RedisStore {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 2 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.OpTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   -1,
	})
	return newRedisStoreWithClient(client, cfg, logger)
}

func newRedisStoreWithClient(client *redis.Client, cfg RedisConfig, logger zerolog.Logger) *RedisStore {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 2 * time.Second
	}
	return &RedisStore{
		client: client,
		logger: logger,
		cfg:    cfg,
	}
}

// Connect pings the server and marks the store open on success.
func (s *RedisStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.lastAttempt = time.Now()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		s.open.Store(false)
		return fmt.Errorf("%w: redis ping: %v", domain.ErrCacheUnavailable, err)
	}
	if !s.open.Swap(true) {
		s.logger.Info().
			Str("addr", s.cfg.Addr).
			Int("db", s.cfg.DB).
			Msg("connected to Redis cache")
	}
	return nil
}

func (s *RedisStore) IsOpen() bool {
	return s.open.Load()
}

// ready reconnects lazily, at most once per ReconnectInterval.
func (s *RedisStore) ready(ctx context.Context) error {
	if s.open.Load() {
		return nil
	}
	s.mu.Lock()
	wait := s.cfg.ReconnectInterval - time.Since(s.lastAttempt)
	s.mu.Unlock()
	if wait > 0 {
		return domain.ErrCacheUnavailable
	}
	return s.Connect(ctx)
}

// fail marks the store closed unless the failure came from the caller's own
// cancellation.
func (s *RedisStore) fail(caller context.Context, err error, op, key string) error {
	if caller.Err() != nil {
		return fmt.Errorf("redis %s: %w", op, caller.Err())
	}
	if s.open.Swap(false) {
		s.logger.Warn().Err(err).Str("op", op).Str("key", key).Msg("redis unavailable, degrading to cache misses")
	}
	return fmt.Errorf("%w: redis %s: %v", domain.ErrCacheUnavailable, op, err)
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()

	val, err := s.client.Get(opCtx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, s.fail(ctx, err, "get", key)
	}
	return val, nil
}

func (s *RedisStore) SetEx(ctx context.Context, key string, ttl time.Duration, value []byte) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()

	if err := s.client.Set(opCtx, key, value, ttl).Err(); err != nil {
		return s.fail(ctx, err, "setex", key)
	}
	return nil
}

// Close closes the Redis connection pool.
func (s *RedisStore) Close() error {
	s.open.Store(false)
	return s.client.Close()
}
