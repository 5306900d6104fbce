// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/markerlab/markerlab/internal/config"
	"github.com/markerlab/markerlab/internal/database"
	"github.com/markerlab/markerlab/internal/logging"
	gormstorage "github.com/markerlab/markerlab/internal/storage/gorm"
	"github.com/markerlab/markerlab/internal/storage/memory"
)

var (
	_ Backend = (*gormstorage.Backend)(nil)
	_ Backend = (*memory.Backend)(nil)
)

// Dependencies are shared by every backend the factory builds.
type Dependencies struct {
	Database   *database.Manager
	DBConfig   config.DBConfig
	LogManager *logging.SlogManager
}

// NewBackend creates a storage backend based on configuration. Backends are
// returned uninitialized; callers run Init.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	if deps.Database == nil {
		deps.Database = database.NewManager(zerolog.Nop())
	}
	switch cfg.Type {
	case "postgres":
		if err := deps.Database.Connect(deps.DBConfig, cfg.SQLitePath); err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		return gormstorage.New(gormstorage.Dependencies{DB: deps.Database.DB, LogManager: deps.LogManager}), nil
	case "sqlite":
		if err := deps.Database.ConnectSQLite(cfg.SQLitePath); err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return gormstorage.New(gormstorage.Dependencies{DB: deps.Database.DB, LogManager: deps.LogManager}), nil
	case "memory":
		return memory.New(cfg.MemorySnapshot), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
