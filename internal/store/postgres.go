package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	listPacksSQL  = `SELECT body FROM packs ORDER BY position`
	getPackSQL    = `SELECT body FROM packs WHERE id = $1`
	deletePackSQL = `DELETE FROM packs WHERE id = $1`
	clearPacksSQL = `DELETE FROM packs`
	// Upsert keeps the original position so edits don't reorder the catalogue.
	upsertPackSQL = `
INSERT INTO packs (id, body) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`
	insertPackSQL = `INSERT INTO packs (id, body) VALUES ($1, $2)`
	getMetaSQL    = `SELECT schema_version, currency FROM pack_meta`
	upsertMetaSQL = `
INSERT INTO pack_meta (singleton, schema_version, currency) VALUES (TRUE, $1, $2)
ON CONFLICT (singleton) DO UPDATE SET schema_version = EXCLUDED.schema_version, currency = EXCLUDED.currency`
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
// Each pack is one JSONB row; catalogue order follows insertion order.
// The tables come from the migrations in internal/db.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ListPacks retrieves all packs in catalogue order.
func (p *PostgresStore) ListPacks(ctx context.Context) ([]Pack, error) {
	rows, err := p.pool.Query(ctx, listPacksSQL)
	if err != nil {
		return nil, err
	}
	bodies, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, err
	}

	packs := make([]Pack, 0, len(bodies))
	for _, body := range bodies {
		pack, err := decodePackRow(body)
		if err != nil {
			return nil, err
		}
		packs = append(packs, pack)
	}
	return packs, nil
}

// GetPack retrieves a single pack by id.
func (p *PostgresStore) GetPack(ctx context.Context, id string) (*Pack, error) {
	var body []byte
	if err := p.pool.QueryRow(ctx, getPackSQL, id).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrPackNotFound, id)
		}
		return nil, err
	}
	pack, err := decodePackRow(body)
	if err != nil {
		return nil, err
	}
	return &pack, nil
}

// UpsertPack creates or replaces a pack.
func (p *PostgresStore) UpsertPack(ctx context.Context, pack Pack) error {
	pack.Normalize()
	body, err := json.Marshal(pack)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, upsertPackSQL, pack.ID, body)
	return err
}

// DeletePack removes a pack. Deleting a missing pack is not an error.
func (p *PostgresStore) DeletePack(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, deletePackSQL, id)
	return err
}

// ClonePack copies a pack inside one transaction.
func (p *PostgresStore) ClonePack(ctx context.Context, id string) (*Pack, error) {
	var clone Pack
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var body []byte
		if err := tx.QueryRow(ctx, getPackSQL, id).Scan(&body); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrPackNotFound, id)
			}
			return err
		}
		src, err := decodePackRow(body)
		if err != nil {
			return err
		}

		var existsErr error
		clone, err = cloneOf(src, func(cloneID string) bool {
			var exists bool
			existsErr = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM packs WHERE id = $1)`, cloneID).Scan(&exists)
			return exists
		})
		if existsErr != nil {
			return existsErr
		}
		if err != nil {
			return err
		}

		cloneBody, err := json.Marshal(clone)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, insertPackSQL, clone.ID, cloneBody)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &clone, nil
}

// Export reads the meta row and every pack.
func (p *PostgresStore) Export(ctx context.Context) (PackFile, error) {
	var meta Meta
	err := p.pool.QueryRow(ctx, getMetaSQL).Scan(&meta.SchemaVersion, &meta.Currency)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return PackFile{}, err
	}
	packs, err := p.ListPacks(ctx)
	if err != nil {
		return PackFile{}, err
	}
	return PackFile{Meta: ensureMeta(meta), Packs: packs}, nil
}

// Import replaces the whole catalogue in one transaction.
func (p *PostgresStore) Import(ctx context.Context, file PackFile) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clearPacksSQL); err != nil {
			return err
		}
		meta := ensureMeta(file.Meta)
		if _, err := tx.Exec(ctx, upsertMetaSQL, meta.SchemaVersion, meta.Currency); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, pack := range file.Packs {
			pack.Normalize()
			body, err := json.Marshal(pack)
			if err != nil {
				return err
			}
			batch.Queue(upsertPackSQL, pack.ID, body)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// decodePackRow converts a JSONB body to a Pack.
func decodePackRow(body []byte) (Pack, error) {
	var pack Pack
	if err := json.Unmarshal(body, &pack); err != nil {
		return Pack{}, fmt.Errorf("%w: %v", ErrInvalidPackFile, err)
	}
	return pack, nil
}
