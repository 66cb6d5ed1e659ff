// Package storage selects and opens the configured fellowship store.
package storage

import (
	"context"
	"fmt"

	"github.com/JakeFAU/fellowship-crawler/internal/config"
	"github.com/JakeFAU/fellowship-crawler/internal/crawler"
	"github.com/JakeFAU/fellowship-crawler/internal/storage/memory"
	"github.com/JakeFAU/fellowship-crawler/internal/storage/postgres"
	"github.com/JakeFAU/fellowship-crawler/internal/storage/sqlite"
)

// Backend is a crawler.Store with a lifecycle.
type Backend interface {
	crawler.Store
	Close()
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open builds the backend named by cfg.Provider.
func Open(ctx context.Context, cfg config.StorageConfig, ids crawler.IDGenerator) (Backend, error) {
	switch cfg.Provider {
	case config.ProviderPostgres:
		store, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			Table:    cfg.Table,
			MaxConns: cfg.Postgres.MaxConns,
		}, ids)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil
	case config.ProviderSQLite:
		return sqlite.Open(ctx, cfg.SQLite.Path, cfg.Table, ids)
	case config.ProviderMemory:
		return memory.New(ids), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
