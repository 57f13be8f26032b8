// Package upload owns the lifecycle of in-flight chunked uploads: session
// creation, chunk admission, completion, and the expiry sweep that keeps
// abandoned uploads from leaking storage.
package upload

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/logging"
	"github.com/ava-vs/chunkvault/internal/server/blob"
	"github.com/ava-vs/chunkvault/internal/server/chunk"
	"github.com/ava-vs/chunkvault/internal/server/manifest"
	"github.com/ava-vs/chunkvault/internal/server/models"
	"github.com/ava-vs/chunkvault/internal/server/repositories/repomanager"
)

// Manager implements the upload-session lifecycle against a SessionStore,
// a blob.Store for chunk objects, and the catalog for the final manifest
// commit.
type Manager struct {
	sessions  SessionStore
	store     blob.Store
	db        *sql.DB
	repos     repomanager.RepositoryManager
	validator *manifest.Validator
	logger    logging.Logger

	// maxChunkSize is the sizing policy ceiling; zero disables the check
	// (the HTTP layer still enforces its absolute request-size limit).
	maxChunkSize int64
	// verifyOnComplete re-hashes stored chunks against the submitted
	// manifest before committing it.
	verifyOnComplete bool
}

func NewManager(sessions SessionStore, store blob.Store, db *sql.DB, repos repomanager.RepositoryManager,
	validator *manifest.Validator, logger logging.Logger, maxChunkSize int64, verifyOnComplete bool) *Manager {
	return &Manager{
		sessions:         sessions,
		store:            store,
		db:               db,
		repos:            repos,
		validator:        validator,
		logger:           logger.With("module", "upload_manager"),
		maxChunkSize:     maxChunkSize,
		verifyOnComplete: verifyOnComplete,
	}
}

// StoragePrefix derives the deterministic chunk-object prefix for an upload.
func StoragePrefix(productID, uploadID string) string {
	return fmt.Sprintf("products/%s/%s", productID, uploadID)
}

// InitializeUpload validates the declared sizes, computes the expected
// chunk count and persists a fresh session. Out-of-policy sizes are
// rejected with a specific validation error before any session exists.
func (m *Manager) InitializeUpload(ctx context.Context, productID string, totalSize, chunkSize int64) (*models.UploadSession, error) {
	if totalSize <= 0 {
		return nil, fmt.Errorf("%w: total size must be positive, got %d", common.ErrorValidation, totalSize)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", common.ErrorValidation, chunkSize)
	}
	if m.maxChunkSize > 0 && chunkSize > m.maxChunkSize {
		return nil, fmt.Errorf("%w: chunk size %d exceeds maximum %d", common.ErrorValidation, chunkSize, m.maxChunkSize)
	}

	uploadID := uuid.New().String()
	session := &models.UploadSession{
		UploadID:       uploadID,
		ProductID:      productID,
		StoragePrefix:  StoragePrefix(productID, uploadID),
		ChunkSize:      chunkSize,
		TotalSize:      totalSize,
		ExpectedChunks: int((totalSize + chunkSize - 1) / chunkSize),
		UploadedChunks: make(map[int]struct{}),
		CreatedAt:      time.Now(),
	}

	if err := m.sessions.Create(session); err != nil {
		return nil, err
	}

	m.logger.Info(ctx, "upload initialized",
		"upload_id", uploadID, "product_id", productID,
		"expected_chunks", session.ExpectedChunks)

	return copySession(session), nil
}

// UploadChunk admits one chunk: bounds-checks the index, writes the bytes
// under the session's prefix and records the index in the uploaded set.
// Re-uploading an index overwrites the object and leaves the set unchanged.
// Returns the chunk's content hash.
func (m *Manager) UploadChunk(ctx context.Context, uploadID string, index int, data []byte) (string, error) {
	var (
		prefix   string
		expected int
	)
	err := m.sessions.View(uploadID, func(s *models.UploadSession) {
		prefix = s.StoragePrefix
		expected = s.ExpectedChunks
	})
	if err != nil {
		return "", err
	}

	if index < 0 || index >= expected {
		return "", fmt.Errorf("%w: index %d, expected range [0, %d)", common.ErrInvalidChunkIndex, index, expected)
	}

	hash := chunk.Hash(data)

	// The blob write happens outside the session lock so uploads of
	// different indices interleave freely; only the set update below is
	// serialized.
	if err := m.store.Put(ctx, chunk.ObjectKey(prefix, index), data); err != nil {
		return "", err
	}

	err = m.sessions.Update(uploadID, func(s *models.UploadSession) (bool, error) {
		s.UploadedChunks[index] = struct{}{}
		return false, nil
	})
	if err != nil {
		// Session completed or got swept while the bytes were in flight;
		// the sweep owns cleanup of any orphaned object.
		return "", err
	}

	return hash, nil
}

// CompleteUpload finalizes the session: it re-checks completeness under the
// same exclusion discipline chunk admission uses, validates the manifest
// against the session, optionally re-verifies stored bytes, commits the
// manifest to the catalog and deletes the session. Completion is
// at-most-once: a replay with the same upload id gets ErrSessionNotFound.
func (m *Manager) CompleteUpload(ctx context.Context, uploadID string, man *models.ChunkManifest) (string, error) {
	var productID string

	err := m.sessions.Update(uploadID, func(s *models.UploadSession) (bool, error) {
		if !s.Complete() {
			return false, fmt.Errorf("%w: %d of %d chunks uploaded",
				common.ErrIncompleteUpload, len(s.UploadedChunks), s.ExpectedChunks)
		}

		if err := m.validator.Validate(man); err != nil {
			return false, err
		}
		if man.TotalChunks != s.ExpectedChunks {
			return false, fmt.Errorf("%w: total_chunks %d does not match session's expected %d",
				common.ErrManifestInvalid, man.TotalChunks, s.ExpectedChunks)
		}
		if man.ChunkSize != s.ChunkSize {
			return false, fmt.Errorf("%w: chunk_size %d does not match session's %d",
				common.ErrManifestInvalid, man.ChunkSize, s.ChunkSize)
		}
		if man.TotalSize != s.TotalSize {
			return false, fmt.Errorf("%w: total_size %d does not match session's declared %d",
				common.ErrManifestInvalid, man.TotalSize, s.TotalSize)
		}

		if m.verifyOnComplete {
			if err := m.validator.VerifyStored(ctx, m.store, man, s.StoragePrefix); err != nil {
				return false, err
			}
		}

		productRepo := m.repos.Products(m.db)
		if err := productRepo.SetManifest(ctx, s.ProductID, man, s.StoragePrefix); err != nil {
			return false, err
		}

		productID = s.ProductID
		return true, nil
	})
	if err != nil {
		return "", err
	}

	m.logger.Info(ctx, "upload completed", "upload_id", uploadID, "product_id", productID)
	return productID, nil
}

// AbortUpload drops the session and deletes any chunk objects already
// written under its prefix. Explicit client-side cancellation; the expiry
// sweep covers the silent-abandonment case.
func (m *Manager) AbortUpload(ctx context.Context, uploadID string) error {
	var prefix string
	err := m.sessions.Update(uploadID, func(s *models.UploadSession) (bool, error) {
		prefix = s.StoragePrefix
		return true, nil
	})
	if err != nil {
		return err
	}

	if err := m.deletePrefix(ctx, prefix); err != nil {
		return err
	}

	m.logger.Info(ctx, "upload aborted", "upload_id", uploadID)
	return nil
}

// Sweep removes sessions older than maxAge together with their partially
// uploaded chunk objects. Returns the number of sessions removed.
func (m *Manager) Sweep(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	swept := 0

	for _, s := range m.sessions.ExpiredBefore(cutoff) {
		err := m.sessions.Update(s.UploadID, func(cur *models.UploadSession) (bool, error) {
			return true, nil
		})
		if err != nil {
			// Completed or aborted since the snapshot; nothing to do.
			continue
		}

		if err := m.deletePrefix(ctx, s.StoragePrefix); err != nil {
			m.logger.Warn(ctx, "sweep: chunk cleanup failed",
				"upload_id", s.UploadID, "error", err.Error())
		}

		m.logger.Info(ctx, "expired upload swept",
			"upload_id", s.UploadID, "product_id", s.ProductID,
			"uploaded_chunks", len(s.UploadedChunks))
		swept++
	}

	return swept
}

func (m *Manager) deletePrefix(ctx context.Context, prefix string) error {
	keys, err := m.store.ListByPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := m.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
