package factory

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/lantern/internal/storage"
	"github.com/DjordjeVuckovic/lantern/internal/storage/in_mem"
	"github.com/DjordjeVuckovic/lantern/internal/storage/pg"
	"github.com/DjordjeVuckovic/lantern/pkg/server"
)

// Backend bundles a store with its health check and a release hook.
type Backend struct {
	Store  storage.Store
	Health server.HealthChecker
	Close  func()
}

// NewBackend opens the store selected by cfg.Type.
func NewBackend(ctx context.Context, cfg *StorageConfig) (*Backend, error) {
	switch cfg.Type {
	case storage.PG:
		if cfg.Pg == nil {
			return nil, fmt.Errorf("invalid config for PostgreSQL storage: pool config is missing")
		}

		pool, err := pg.NewConnectionPool(ctx, *cfg.Pg)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
		}

		return &Backend{
			Store:  pg.NewStoreFromPool(pool),
			Health: pg.NewHealthChecker(pool),
			Close:  pool.Close,
		}, nil

	case storage.InMem:
		return &Backend{
			Store:  in_mem.NewStore(),
			Health: server.NewOkHealthChecker(),
			Close:  func() {},
		}, nil

	default:
		return nil, fmt.Errorf(string(storage.ErrUnsupportedStorer), cfg.Type)
	}
}
