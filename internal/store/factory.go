package store

import (
	"context"
	"fmt"

	mydb "github.com/TimurManjosov/packgenie/internal/db"
	"github.com/rs/zerolog"
)

// Options carries the settings NewStore needs for each backend.
type Options struct {
	PacksFile string // file backend
	DSN       string // postgres backend
	Logger    zerolog.Logger
}

// NewStore creates a new store based on the given store type.
// Supported types: "memory", "file", "postgres"
func NewStore(ctx context.Context, storeType string, opts Options) (Store, error) {
	switch storeType {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(opts.PacksFile, opts.Logger)
	case "postgres":
		if err := mydb.Migrate(opts.DSN); err != nil {
			return nil, err
		}
		if version, _, err := mydb.SchemaVersion(opts.DSN); err == nil {
			opts.Logger.Info().Uint("schema_version", version).Msg("postgres schema up to date")
		}
		pool, err := mydb.NewPool(ctx, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		return NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
