// Package database opens GORM connections. PostgreSQL is preferred; a local
// SQLite file is the fallback when Postgres is unreachable.
package database

import (
	"database/sql"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/markerlab/markerlab/internal/config"
)

// MemoryDSN is a shared-cache in-memory SQLite database.
const MemoryDSN = "file::memory:?cache=shared"

const (
	postgresPool = 10
	sqlitePool   = 1 // one writer at a time
)

var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
}

// Manager owns the connection the storage layer runs on.
type Manager struct {
	DB *gorm.DB
	// Fallback is set when the connection is the local SQLite file, either
	// by request or because Postgres could not be reached.
	Fallback bool
	// Path is the SQLite file in use, "" for Postgres or in-memory.
	Path string

	log  zerolog.Logger
	pool *sql.DB
}

// NewManager creates an unconnected Manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log}
}

// Connect opens Postgres, falling back to the SQLite file at sqlitePath when
// Postgres cannot be opened or pinged.
func (m *Manager) Connect(cfg config.DBConfig, sqlitePath string) error {
	m.log.Debug().Str("host", cfg.Host).Str("port", cfg.Port).Str("database", cfg.Database).Msg("Connecting to Postgres")

	err := m.open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), postgresPool, &gorm.Config{})
	if err == nil {
		err = m.pool.Ping()
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("Postgres unavailable, using SQLite")
		_ = m.Close()
		return m.ConnectSQLite(sqlitePath)
	}
	m.log.Info().Str("host", cfg.Host).Msg("Connected to Postgres")
	return nil
}

// ConnectSQLite opens the SQLite database at path, or an in-memory one when
// path is empty.
func (m *Manager) ConnectSQLite(path string) error {
	dsn := path
	if dsn == "" {
		dsn = MemoryDSN
	}
	if err := m.open(sqlite.Open(dsn), sqlitePool, &gorm.Config{PrepareStmt: true}); err != nil {
		return fmt.Errorf("opening sqlite %q: %w", dsn, err)
	}
	for _, pragma := range sqlitePragmas {
		if err := m.DB.Exec(pragma).Error; err != nil {
			_ = m.Close()
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	m.Fallback = true
	m.Path = path
	m.log.Info().Str("path", dsn).Msg("Using local SQLite DB")
	return nil
}

func (m *Manager) open(d gorm.Dialector, maxOpen int, cfg *gorm.Config) error {
	cfg.SkipDefaultTransaction = true
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(d, cfg)
	if err != nil {
		return err
	}
	pool, err := db.DB()
	if err != nil {
		return fmt.Errorf("sql pool: %w", err)
	}
	pool.SetMaxOpenConns(maxOpen)
	m.DB, m.pool = db, pool
	return nil
}

// PostgresDSN builds a libpq connection string.
func PostgresDSN(cfg config.DBConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

// Dialect returns the connected dialect name, or "" before Connect.
func (m *Manager) Dialect() string {
	if m.DB == nil {
		return ""
	}
	return m.DB.Dialector.Name()
}

// Close releases the connection pool. It is safe to call on an unconnected
// Manager.
func (m *Manager) Close() error {
	if m.pool == nil {
		return nil
	}
	pool := m.pool
	m.DB, m.pool = nil, nil
	return pool.Close()
}
