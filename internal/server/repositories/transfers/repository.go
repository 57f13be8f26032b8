package transfers

import (
	"context"

	"github.com/ava-vs/chunkvault/internal/server/models"
)

// Repository is the catalog contract for transfer rows. Read-only from the
// transfer core's perspective except for the receipt-driven advance
// paid -> acknowledged.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Transfer, error)
	// GetPaidFor returns the paid transfer granting toIdentity download
	// rights on productID, or common.ErrorNotFound if none exists.
	GetPaidFor(ctx context.Context, productID, toIdentity string) (*models.Transfer, error)
	// MarkAcknowledged advances a paid transfer to acknowledged. Fails
	// with common.ErrorNotFound when the row is absent or not paid, so
	// the one-way state machine cannot be bypassed or replayed.
	MarkAcknowledged(ctx context.Context, id string) error
}
