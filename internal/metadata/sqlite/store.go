// Package sqlite is the embedded metadata store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver

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
	created_at     INTEGER NOT NULL
);`

// Config defines SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 8,
	}
}

type Store struct {
	db *sql.DB
}

var _ ports.MetadataStore = (*Store)(nil)

// Open opens (creating if needed) the database at dbPath and applies the
// schema. Use ":memory:" with MaxOpenConns 1 for tests.
func Open(ctx context.Context, dbPath string, cfg Config) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir failed: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: schema failed: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.VideoRecord, error) {
	var (
		rec     domain.VideoRecord
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, storage_path, encryption_key, thumbnail_path, created_at
		   FROM videos WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Title, &rec.StoragePath, &rec.EncryptionKey, &rec.ThumbnailPath, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query video: %w", err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	return &rec, nil
}

func (s *Store) Insert(ctx context.Context, rec domain.VideoRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (id, title, storage_path, encryption_key, thumbnail_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.StoragePath, rec.EncryptionKey, rec.ThumbnailPath, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", domain.ErrConflict, rec.ID)
		}
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
