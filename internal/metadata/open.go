// Package metadata opens the configured video metadata store.
package metadata

import (
	"context"
	"fmt"

	"vesflix/internal/core/ports"
	"vesflix/internal/metadata/postgres"
	"vesflix/internal/metadata/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is a metadata store that can report its health.
type Store interface {
	ports.MetadataStore
	Ping(ctx context.Context) error
}

// Open returns the store for driver. For sqlite dsn is a file path, for
// postgres a connection string.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		s, err := sqlite.Open(ctx, dsn, sqlite.DefaultConfig())
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown metadata driver %q", driver)
	}
}
