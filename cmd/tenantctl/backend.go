// AngelaMos | 2026
// backend.go

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/templates/tenant-backend/internal/config"
	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store/postgres"
)

type backend struct {
	store    *store.Store
	failures event.FailureStore
	db       *core.Database
}

func (b *backend) Close() error {
	return b.db.Close()
}

// openBackend connects to the configured postgres database. The memory
// driver lives inside one API process, so there is nothing to operate on.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("command needs database.driver=%s", config.DriverPostgres)
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	slog.Debug("database connected")

	return &backend{
		store:    postgres.New(db.Pool, db.DB),
		failures: postgres.NewFailureRepository(db.DB),
		db:       db,
	}, nil
}
