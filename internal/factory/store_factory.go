package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/adapters/store"
	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
)

// StoreFactory creates model repositories based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateModelRepository creates a model repository based on the configuration
func (f *StoreFactory) CreateModelRepository() (core.ModelRepository, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "file", "":
		return store.NewFileStore(f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(storeCfg.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(storeCfg.MySQLDSN, f.logger)
	case "redis":
		return store.NewRedisStore(storeCfg.RedisURL, storeCfg.RedisPrefix, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}

// ModelKey returns the key the configured store uses for the model
func (f *StoreFactory) ModelKey() string {
	return f.cfg.ModelKey()
}
