package repositories

import (
	"fmt"
	"strings"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
)

// StoreType represents the type of token store backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeSQLite StoreType = "sqlite"
	StoreTypeRedis  StoreType = "redis"
)

func (s StoreType) String() string { return string(s) }

// ParseStoreType parses a backend name, case-insensitively. Unknown names select SQLite.
func ParseStoreType(s string) StoreType {
	switch StoreType(strings.ToLower(strings.TrimSpace(s))) {
	case StoreTypeMemory:
		return StoreTypeMemory
	case StoreTypeRedis:
		return StoreTypeRedis
	default:
		return StoreTypeSQLite
	}
}

// Config contains configuration for creating a store.
type Config struct {
	Type     StoreType
	Database shared.DatabaseConfig
	Redis    RedisOptions
}

// ConfigFrom extracts the store settings from the application configuration.
func ConfigFrom(c *shared.Config) Config {
	return Config{
		Type:     ParseStoreType(c.Store.Type),
		Database: c.Database,
		Redis: RedisOptions{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
		},
	}
}

// Factory creates store instances based on configuration.
type Factory struct {
	config Config
}

// NewFactory creates a new store factory with the provided configuration.
func NewFactory(config Config) *Factory {
	return &Factory{config: config}
}

// Create opens the configured backend. A SQLite store is migrated before it is returned.
func (f *Factory) Create() (models.TokenStore, error) {
	switch f.config.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeSQLite:
		return f.openSQLite()
	case StoreTypeRedis:
		return NewRedisStoreFromOptions(f.config.Redis)
	default:
		return nil, fmt.Errorf("%w: unsupported store type: %s", shared.ErrInvalidConfig, f.config.Type)
	}
}

func (f *Factory) openSQLite() (*TokenRepository, error) {
	db, err := shared.NewDatabase(f.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, f.config.Database.MaxOpenConns, f.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewTokenRepository(db), nil
}

// NewStore is equivalent to NewFactory(config).Create().
func NewStore(config Config) (models.TokenStore, error) {
	return NewFactory(config).Create()
}
