// Package transfer exposes the chunked-transfer façade: upload-session
// operations for producers and gated manifest/chunk reads for consumers,
// plus the receipt and key-grant operations built on the same records.
package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/cryptox"
	"github.com/ava-vs/chunkvault/internal/dbx"
	"github.com/ava-vs/chunkvault/internal/logging"
	"github.com/ava-vs/chunkvault/internal/server/access"
	"github.com/ava-vs/chunkvault/internal/server/blob"
	"github.com/ava-vs/chunkvault/internal/server/chunk"
	"github.com/ava-vs/chunkvault/internal/server/models"
	"github.com/ava-vs/chunkvault/internal/server/repositories/repomanager"
	"github.com/ava-vs/chunkvault/internal/server/upload"
)

// Service combines the upload manager, the access gate, the blob store and
// the catalog into the chunked-transfer surface the boundary layer calls.
type Service struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	uploads *upload.Manager
	gate    *access.Gate
	store   blob.Store
	logger  logging.Logger

	// verifyOnDownload re-hashes chunk bytes against the manifest entry
	// before serving them.
	verifyOnDownload bool
	// wrappingKey seals content keys into grant envelopes.
	wrappingKey []byte
}

func NewService(db *sql.DB, repos repomanager.RepositoryManager, uploads *upload.Manager,
	gate *access.Gate, store blob.Store, logger logging.Logger,
	verifyOnDownload bool, wrappingKey []byte) *Service {
	return &Service{
		db:               db,
		repos:            repos,
		uploads:          uploads,
		gate:             gate,
		store:            store,
		logger:           logger.With("module", "transfer_service"),
		verifyOnDownload: verifyOnDownload,
		wrappingKey:      wrappingKey,
	}
}

// InitializeUpload starts a chunked upload for a product the requester
// owns. A product whose manifest is already committed cannot be uploaded
// again (the pending -> populated transition is one-way).
func (s *Service) InitializeUpload(ctx context.Context, productID, requesterIdentity string, totalSize, chunkSize int64) (*models.UploadSession, error) {
	product, err := s.gate.RequireOwner(ctx, productID, requesterIdentity)
	if err != nil {
		return nil, err
	}
	if product.HasContent() {
		return nil, fmt.Errorf("%w: product %s already has committed content", common.ErrorValidation, productID)
	}

	return s.uploads.InitializeUpload(ctx, productID, totalSize, chunkSize)
}

// UploadChunk admits one chunk into the session. The upload id is the
// capability here; ownership was checked at initialization.
func (s *Service) UploadChunk(ctx context.Context, uploadID string, index int, data []byte) (string, error) {
	return s.uploads.UploadChunk(ctx, uploadID, index, data)
}

// CompleteUpload validates and commits the manifest, finalizing the product.
func (s *Service) CompleteUpload(ctx context.Context, uploadID string, man *models.ChunkManifest) (string, error) {
	return s.uploads.CompleteUpload(ctx, uploadID, man)
}

// AbortUpload cancels an in-progress upload and removes its chunks.
func (s *Service) AbortUpload(ctx context.Context, uploadID string) error {
	return s.uploads.AbortUpload(ctx, uploadID)
}

// GetManifest returns the product's manifest after running the access gate.
// A nil manifest with a nil error means the upload never completed; that is
// a valid outcome, distinct from denial and from product-not-found.
func (s *Service) GetManifest(ctx context.Context, productID, requesterIdentity string) (*models.ChunkManifest, error) {
	product, err := s.gate.CanDownload(ctx, productID, requesterIdentity)
	if err != nil {
		return nil, err
	}
	return product.Manifest, nil
}

// DownloadChunk returns the bytes of one chunk after running the access
// gate. Returns nil bytes when the product has no finalized content or the
// object is absent from storage.
func (s *Service) DownloadChunk(ctx context.Context, productID string, index int, requesterIdentity string) ([]byte, error) {
	product, err := s.gate.CanDownload(ctx, productID, requesterIdentity)
	if err != nil {
		return nil, err
	}

	if !product.HasContent() {
		return nil, nil
	}

	// Index bounds come from the committed manifest, for everyone
	// including the owner.
	if index < 0 || index >= product.Manifest.TotalChunks {
		return nil, fmt.Errorf("%w: index %d, manifest has %d chunks",
			common.ErrInvalidChunkIndex, index, product.Manifest.TotalChunks)
	}

	data, err := s.store.Get(ctx, chunk.ObjectKey(product.StoragePointer, index))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	if s.verifyOnDownload {
		if got := chunk.Hash(data); got != product.Manifest.Chunks[index].Hash {
			return nil, fmt.Errorf("%w: chunk %d failed integrity re-check", common.ErrorInternal, index)
		}
	}

	return data, nil
}

// AcknowledgeDelivery records a delivery receipt and advances the transfer
// from paid to acknowledged, in one transaction. Only the transfer's
// recipient may acknowledge it.
func (s *Service) AcknowledgeDelivery(ctx context.Context, transferID, requesterIdentity string) (*models.DeliveryReceipt, error) {
	if requesterIdentity == "" {
		return nil, fmt.Errorf("%w: no verified identity", common.ErrorUnauthorized)
	}

	tr, err := s.repos.Transfers(s.db).GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if tr.ToIdentity != requesterIdentity {
		return nil, fmt.Errorf("%w: transfer %s is not addressed to requester", common.ErrAccessDenied, transferID)
	}
	if tr.Status != models.TransferStatusPaid {
		return nil, fmt.Errorf("%w: transfer %s has status %q, want %q",
			common.ErrorValidation, transferID, tr.Status, models.TransferStatusPaid)
	}

	receipt := &models.DeliveryReceipt{
		ID:         uuid.New().String(),
		TransferID: transferID,
		Identity:   requesterIdentity,
		ReceivedAt: time.Now(),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Receipts(tx).Create(ctx, receipt); err != nil {
			return err
		}
		return s.repos.Transfers(tx).MarkAcknowledged(ctx, transferID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "delivery acknowledged", "transfer_id", transferID)
	return receipt, nil
}

// GrantKey mints a time-bounded key grant for a recipient: the content key
// is sealed into an opaque envelope and stored with its expiry. Owner-only.
func (s *Service) GrantKey(ctx context.Context, productID, requesterIdentity, recipientIdentity string, contentKey []byte, ttl time.Duration) (*models.KeyGrant, error) {
	if _, err := s.gate.RequireOwner(ctx, productID, requesterIdentity); err != nil {
		return nil, err
	}
	if recipientIdentity == "" {
		return nil, fmt.Errorf("%w: recipient identity is required", common.ErrorValidation)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: grant ttl must be positive", common.ErrorValidation)
	}

	envelope, err := cryptox.SealKey(contentKey, s.wrappingKey)
	if err != nil {
		return nil, fmt.Errorf("seal content key: %w", err)
	}

	grant := &models.KeyGrant{
		ID:                uuid.New().String(),
		ProductID:         productID,
		RecipientIdentity: recipientIdentity,
		KeyEnvelope:       envelope,
		ExpiresAt:         time.Now().Add(ttl),
	}
	if err := s.repos.KeyGrants(s.db).Create(ctx, grant); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "key granted",
		"product_id", productID, "recipient", recipientIdentity,
		"expires_at", grant.ExpiresAt.Format(time.RFC3339))
	return grant, nil
}

// GetKeyEnvelope returns the requester's sealed key envelope for a product
// they are authorized to download.
func (s *Service) GetKeyEnvelope(ctx context.Context, productID, requesterIdentity string) ([]byte, error) {
	if _, err := s.gate.CanDownload(ctx, productID, requesterIdentity); err != nil {
		return nil, err
	}

	grant, err := s.repos.KeyGrants(s.db).GetForRecipient(ctx, productID, requesterIdentity)
	if err != nil {
		return nil, err
	}
	return grant.KeyEnvelope, nil
}
