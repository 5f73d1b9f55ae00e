package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/calenhart/lorecrawl/internal/config"
)

// Record is anything that can flatten itself into a persistable document.
// Documents must carry an "id" key; Save upserts on it.
type Record interface {
	Doc() map[string]any
}

// Backend is the uniform contract over the record stores. Backend choice is
// a persistence detail only and never changes the shape of stored records.
type Backend interface {
	// Save upserts one record into a collection, keyed on the document id.
	// Last write wins; there is no merge.
	Save(ctx context.Context, collection string, rec Record) error

	// SaveBatch upserts a batch of records into a collection.
	SaveBatch(ctx context.Context, collection string, recs []Record) error

	// Query returns the documents in a collection matching every key/value
	// pair in filter. A nil filter matches everything. Results are ordered
	// by id.
	Query(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error)

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// Open constructs the backend selected by cfg. An unreachable server is a
// startup failure, surfaced here before any processing begins.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Backend, error) {
	switch cfg.Storage.Backend {
	case "json":
		dir := cfg.Storage.OutputPath
		if dir == "" {
			dir = filepath.Join(cfg.Wiki.OutputDir, "entities")
		}
		return NewJSONBackend(dir, logger)
	case "mongodb":
		return NewMongoBackend(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDB, logger)
	case "postgres":
		return NewPostgresBackend(cfg.Storage.PostgresDSN, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}

// docID extracts the identifying key from a flattened document.
func docID(doc map[string]any) (string, bool) {
	id, ok := doc["id"].(string)
	return id, ok && id != ""
}

// withRetry runs a write, retrying once on failure.
func withRetry(fn func() error) error {
	if err := fn(); err != nil {
		return fn()
	}
	return nil
}
