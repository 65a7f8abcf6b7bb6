package backend

import (
	"context"
	"fmt"

	"fxrates/internal/ecb"
	"fxrates/internal/log"
	"fxrates/internal/services"
	"fxrates/internal/storage"
	"fxrates/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	if version, dirty, err := storage.SchemaVersion(config.SQLiteDBPath); err == nil {
		f.logger.Info("Initialized SQLite backend",
			"db_path", config.SQLiteDBPath,
			"schema_version", version,
			"schema_dirty", dirty)
	} else {
		f.logger.Warn("Initialized SQLite backend, schema version unknown",
			"db_path", config.SQLiteDBPath, log.FieldError, err)
	}

	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store := memory.NewStore()

	if config.SeedFile != "" {
		rows, err := ecb.ReadFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("seed memory backend: %w", err)
		}
		run, err := services.NewImportService(store, nil).Import(ctx, config.SeedFile, rows, config.Rates)
		if err != nil {
			return nil, fmt.Errorf("seed memory backend: %w", err)
		}
		f.logger.Info("Seeded memory backend",
			log.FieldSource, config.SeedFile,
			log.FieldInserted, run.Inserted,
			log.FieldSkipped, run.Skipped,
			log.FieldFiltered, run.Filtered)
	}

	f.logger.Info("Initialized memory backend")
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}
