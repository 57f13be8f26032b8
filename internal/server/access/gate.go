// Package access implements the download authorization gate: ownership, or
// a paid transfer combined with a live key grant. Both factors must hold
// simultaneously for a non-owner.
package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/logging"
	"github.com/ava-vs/chunkvault/internal/server/models"
	"github.com/ava-vs/chunkvault/internal/server/repositories/repomanager"
)

// Gate decides whether an identity may read a product's manifest and
// chunks. A denial is always common.ErrAccessDenied, never conflated with
// not-found; a missing product is common.ErrProductNotFound.
type Gate struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewGate(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *Gate {
	return &Gate{db: db, repos: repos, logger: logger.With("module", "access_gate")}
}

// CanDownload returns the product when the requester is allowed to read it.
//
// Decision order, first match wins:
//  1. owner -> allow
//  2. no paid transfer to the requester -> deny
//  3. no key grant, or grant expired -> deny
//  4. both factors hold -> allow
func (g *Gate) CanDownload(ctx context.Context, productID, requesterIdentity string) (*models.Product, error) {
	if requesterIdentity == "" {
		return nil, fmt.Errorf("%w: no verified identity", common.ErrorUnauthorized)
	}

	product, err := g.repos.Products(g.db).GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if product.OwnerIdentity == requesterIdentity {
		return product, nil
	}

	_, err = g.repos.Transfers(g.db).GetPaidFor(ctx, productID, requesterIdentity)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: no paid transfer for product %s", common.ErrAccessDenied, productID)
		}
		return nil, err
	}

	grant, err := g.repos.KeyGrants(g.db).GetForRecipient(ctx, productID, requesterIdentity)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: no key grant for product %s", common.ErrAccessDenied, productID)
		}
		return nil, err
	}
	if !grant.Live(time.Now()) {
		return nil, fmt.Errorf("%w: key grant for product %s expired at %s",
			common.ErrAccessDenied, productID, grant.ExpiresAt.Format(time.RFC3339))
	}

	return product, nil
}

// RequireOwner returns the product when requesterIdentity owns it; any
// other identity is denied. Used by producer-side operations (upload
// initialization, key-grant minting).
func (g *Gate) RequireOwner(ctx context.Context, productID, requesterIdentity string) (*models.Product, error) {
	if requesterIdentity == "" {
		return nil, fmt.Errorf("%w: no verified identity", common.ErrorUnauthorized)
	}

	product, err := g.repos.Products(g.db).GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.OwnerIdentity != requesterIdentity {
		return nil, fmt.Errorf("%w: product %s is not owned by requester", common.ErrAccessDenied, productID)
	}
	return product, nil
}
