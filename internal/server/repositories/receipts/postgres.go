package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/dbx"
	"github.com/ava-vs/chunkvault/internal/server/models"
)

// PostgresRepository implements delivery-receipt storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a receipt. The unique index on transfer_id enforces
// at most one receipt per transfer.
func (r *PostgresRepository) Create(ctx context.Context, receipt *models.DeliveryReceipt) error {
	query := `
		INSERT INTO delivery_receipts (id, transfer_id, identity, received_at)
		VALUES ($1, $2, $3, $4)
	`
	res, err := r.db.ExecContext(ctx, query,
		receipt.ID, receipt.TransferID, receipt.Identity, receipt.ReceivedAt)
	if err != nil {
		return fmt.Errorf("%w: insert receipt: %v", common.ErrStorageUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

func (r *PostgresRepository) GetByTransferID(ctx context.Context, transferID string) (*models.DeliveryReceipt, error) {
	query := `
		SELECT id, transfer_id, identity, received_at
		FROM delivery_receipts WHERE transfer_id = $1
	`

	var rec models.DeliveryReceipt
	err := r.db.QueryRowContext(ctx, query, transferID).Scan(
		&rec.ID, &rec.TransferID, &rec.Identity, &rec.ReceivedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no receipt for transfer %s", common.ErrorNotFound, transferID)
		}
		return nil, fmt.Errorf("%w: select receipt: %v", common.ErrStorageUnavailable, err)
	}
	return &rec, nil
}
