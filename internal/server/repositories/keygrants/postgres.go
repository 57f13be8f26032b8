package keygrants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/dbx"
	"github.com/ava-vs/chunkvault/internal/server/models"
)

// PostgresRepository implements key-grant storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetForRecipient(ctx context.Context, productID, recipientIdentity string) (*models.KeyGrant, error) {
	query := `
		SELECT id, product_id, recipient_identity, key_envelope, expires_at, created_at
		FROM key_grants
		WHERE product_id = $1 AND recipient_identity = $2
		ORDER BY expires_at DESC LIMIT 1
	`

	var g models.KeyGrant
	err := r.db.QueryRowContext(ctx, query, productID, recipientIdentity).Scan(
		&g.ID, &g.ProductID, &g.RecipientIdentity, &g.KeyEnvelope, &g.ExpiresAt, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no key grant for product %s", common.ErrorNotFound, productID)
		}
		return nil, fmt.Errorf("%w: select key grant: %v", common.ErrStorageUnavailable, err)
	}
	return &g, nil
}

func (r *PostgresRepository) Create(ctx context.Context, grant *models.KeyGrant) error {
	query := `
		INSERT INTO key_grants (id, product_id, recipient_identity, key_envelope, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	res, err := r.db.ExecContext(ctx, query,
		grant.ID, grant.ProductID, grant.RecipientIdentity, grant.KeyEnvelope, grant.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%w: insert key grant: %v", common.ErrStorageUnavailable, err)
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
