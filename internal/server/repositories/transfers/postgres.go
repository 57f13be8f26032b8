package transfers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/dbx"
	"github.com/ava-vs/chunkvault/internal/server/models"
)

// PostgresRepository implements transfer storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, product_id, from_identity, to_identity, price, status, created_at, updated_at`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Transfer, error) {
	query := `SELECT ` + selectColumns + ` FROM transfers WHERE id = $1`

	tr, err := scanTransfer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: transfer %s", common.ErrorNotFound, id)
		}
		return nil, fmt.Errorf("%w: select transfer: %v", common.ErrStorageUnavailable, err)
	}
	return tr, nil
}

func (r *PostgresRepository) GetPaidFor(ctx context.Context, productID, toIdentity string) (*models.Transfer, error) {
	query := `SELECT ` + selectColumns + ` FROM transfers
		WHERE product_id = $1 AND to_identity = $2 AND status = $3
		ORDER BY updated_at DESC LIMIT 1`

	tr, err := scanTransfer(r.db.QueryRowContext(ctx, query, productID, toIdentity, models.TransferStatusPaid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no paid transfer for product %s", common.ErrorNotFound, productID)
		}
		return nil, fmt.Errorf("%w: select transfer: %v", common.ErrStorageUnavailable, err)
	}
	return tr, nil
}

func (r *PostgresRepository) MarkAcknowledged(ctx context.Context, id string) error {
	query := `UPDATE transfers SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`

	res, err := r.db.ExecContext(ctx, query, id, models.TransferStatusAcknowledged, models.TransferStatusPaid)
	if err != nil {
		return fmt.Errorf("%w: update transfer: %v", common.ErrStorageUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%w: transfer %s (absent or not paid)", common.ErrorNotFound, id)
	}
	return nil
}

func scanTransfer(row *sql.Row) (*models.Transfer, error) {
	var tr models.Transfer
	err := row.Scan(&tr.ID, &tr.ProductID, &tr.FromIdentity, &tr.ToIdentity,
		&tr.Price, &tr.Status, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &tr, nil
}
