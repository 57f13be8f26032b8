package receipts

import (
	"context"

	"github.com/ava-vs/chunkvault/internal/server/models"
)

// Repository is the catalog contract for delivery-receipt rows.
type Repository interface {
	Create(ctx context.Context, receipt *models.DeliveryReceipt) error
	GetByTransferID(ctx context.Context, transferID string) (*models.DeliveryReceipt, error)
}
