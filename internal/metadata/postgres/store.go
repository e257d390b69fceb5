// Package postgres is the server-backed metadata store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vesflix/internal/core/domain"
	"vesflix/internal/core/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS videos (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	storage_path   TEXT NOT NULL,
	encryption_key TEXT NOT NULL,
	thumbnail_path TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DBTX is implemented by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db   DBTX
	pool *pgxpool.Pool
}

var _ ports.MetadataStore = (*Store)(nil)

// Connect creates a pool for dsn, pings it and applies the schema.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	s := &Store{db: pool, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection or transaction.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Migrate creates the videos table if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.VideoRecord, error) {
	var rec domain.VideoRecord
	err := s.db.QueryRow(ctx,
		`SELECT id, title, storage_path, encryption_key, thumbnail_path, created_at
		   FROM videos WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Title, &rec.StoragePath, &rec.EncryptionKey, &rec.ThumbnailPath, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query video: %w", err)
	}
	return &rec, nil
}

func (s *Store) Insert(ctx context.Context, rec domain.VideoRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO videos (id, title, storage_path, encryption_key, thumbnail_path, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Title, rec.StoragePath, rec.EncryptionKey, rec.ThumbnailPath, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrConflict, rec.ID)
		}
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

// Ping checks the pool is reachable. Stores built with New always succeed.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
