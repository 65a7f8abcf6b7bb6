// Package backend builds the rate store selected by DATA_BACKEND.
package backend

import (
	"context"

	"fxrates/internal/core"
	"fxrates/internal/storage"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// BackendResult contains the store and its cleanup function.
type BackendResult struct {
	Store   storage.RateStore
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific. When SeedFile names an ECB csv or zip file it is
	// imported at startup, restricted to Rates' coverage range.
	SeedFile string
	Rates    core.RateConfig
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
