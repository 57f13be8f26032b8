package products

import (
	"context"

	"github.com/ava-vs/chunkvault/internal/server/models"
)

// Repository is the catalog contract for product rows. The transfer core
// never creates products (registration is external); it is the sole writer
// of the manifest and storage pointer.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	SetManifest(ctx context.Context, id string, manifest *models.ChunkManifest, storagePointer string) error
}
