package storage

import (
	"context"
	"fmt"

	"ebis/config"
	"ebis/observability"
)

// Open creates the backend selected by cfg, wrapped with metrics
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	var (
		s   Store
		err error
	)

	switch cfg.Backend {
	case config.BackendMemory, "":
		s = NewMemoryStore()
	case config.BackendSQLite:
		s, err = NewSQLiteStore(ctx, cfg.SQLitePath)
	case config.BackendPostgres:
		s, err = NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	backend := cfg.Backend
	if backend == "" {
		backend = config.BackendMemory
	}
	observability.Info("storage opened", "backend", backend)

	return Instrument(s, backend, nil), nil
}
