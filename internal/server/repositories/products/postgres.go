package products

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/dbx"
	"github.com/ava-vs/chunkvault/internal/server/models"
)

// PostgresRepository implements product storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the product row, including the committed manifest if any.
// Returns common.ErrProductNotFound when no row exists.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `
		SELECT id, owner_identity, title, content_type, size, content_hash,
		       storage_pointer, manifest, created_at, updated_at
		FROM products WHERE id = $1
	`

	var (
		p        models.Product
		manifest []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.OwnerIdentity, &p.Title, &p.ContentType, &p.Size,
		&p.ContentHash, &p.StoragePointer, &manifest, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %s", common.ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("%w: select product: %v", common.ErrStorageUnavailable, err)
	}

	if manifest != nil {
		var m models.ChunkManifest
		if err := json.Unmarshal(manifest, &m); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		p.Manifest = &m
	}

	return &p, nil
}

// SetManifest commits the manifest and finalized storage pointer onto the
// product. The pending -> populated transition is one-way: the update only
// matches rows that still carry the pending pointer, so a replay cannot
// overwrite a committed manifest.
func (r *PostgresRepository) SetManifest(ctx context.Context, id string, manifest *models.ChunkManifest, storagePointer string) error {
	data, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	query := `
		UPDATE products
		SET manifest = $2, storage_pointer = $3, updated_at = now()
		WHERE id = $1 AND storage_pointer = $4
	`
	res, err := r.db.ExecContext(ctx, query, id, data, storagePointer, models.StoragePointerPending)
	if err != nil {
		return fmt.Errorf("%w: update product: %v", common.ErrStorageUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: product %s (absent or already populated)", common.ErrProductNotFound, id)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
