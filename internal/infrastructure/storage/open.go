package storage

import (
	"context"
	"fmt"
)

// Open builds a Repository for the configured driver. dsn is the SQLite
// file path or the Postgres connection string.
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	switch driver {
	case "sqlite", "":
		return NewStorage(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
