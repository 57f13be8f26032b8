package keygrants

import (
	"context"

	"github.com/ava-vs/chunkvault/internal/server/models"
)

// Repository is the catalog contract for key-grant rows.
type Repository interface {
	// GetForRecipient returns the most recently expiring grant minted for
	// the recipient on the product, or common.ErrorNotFound if none.
	// Expiry is evaluated by the caller, not the query, so a denied
	// request can name the expired grant in its detail.
	GetForRecipient(ctx context.Context, productID, recipientIdentity string) (*models.KeyGrant, error)
	Create(ctx context.Context, grant *models.KeyGrant) error
}
