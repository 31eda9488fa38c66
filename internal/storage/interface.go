package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/azure/brand-analytics/internal/config"
)

// ErrNotFound is returned when a key holds no data
var ErrNotFound = errors.New("not found")

// StorageInterface defines the contract for storage operations.
// Keys are slash-separated paths; List returns keys in ascending order.
type StorageInterface interface {
	Store(ctx context.Context, key string, data []byte) error
	Retrieve(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// New opens the backend selected by the configuration
func New(ctx context.Context, cfg *config.Config) (StorageInterface, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return NewMemoryStorage(), nil
	case config.BackendSQLite:
		return NewSQLiteStorage(ctx, cfg.SQLitePath)
	case config.BackendAzure:
		return NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
