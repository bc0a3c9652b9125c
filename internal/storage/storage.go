package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/ItemSnap/internal/config"
)

// BatchKey is the key the batch list is persisted under.
const BatchKey = "batchData"

// Store is a key-value persistence backend.
type Store interface {
	// Get returns the value for key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Put creates or replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Open creates the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.BatchConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Path, logger)
	case "mongodb":
		return NewMongoStore(ctx, cfg.URI, cfg.Database, cfg.Collection, logger)
	case "postgres":
		return NewPostgresStore(ctx, cfg.URI, cfg.Table, logger)
	default:
		return nil, fmt.Errorf("unsupported batch backend: %s", cfg.Backend)
	}
}
