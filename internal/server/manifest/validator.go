// Package manifest verifies a producer-submitted chunk manifest before it
// is committed as a product's authoritative chunk index.
package manifest

import (
	"context"
	"fmt"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/server/blob"
	"github.com/ava-vs/chunkvault/internal/server/chunk"
	"github.com/ava-vs/chunkvault/internal/server/models"
)

// Validator checks a manifest's internal consistency. Per-chunk hash and
// size correctness against actual stored bytes is NOT checked here; that is
// the trust boundary accepted from the producer, hardened separately by
// VerifyStored.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns nil for a well-formed manifest, or an error wrapping
// common.ErrManifestInvalid naming the exact missing field or offending
// index. Failures are mapped 1:1, never collapsed into a generic error.
func (v *Validator) Validate(m *models.ChunkManifest) error {
	if m == nil {
		return fmt.Errorf("%w: manifest is missing", common.ErrManifestInvalid)
	}
	if m.TotalChunks <= 0 {
		return fmt.Errorf("%w: total_chunks must be positive, got %d", common.ErrManifestInvalid, m.TotalChunks)
	}
	if m.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", common.ErrManifestInvalid, m.ChunkSize)
	}
	if m.TotalSize <= 0 {
		return fmt.Errorf("%w: total_size must be positive, got %d", common.ErrManifestInvalid, m.TotalSize)
	}
	if m.ContentHash == "" {
		return fmt.Errorf("%w: content_hash is missing", common.ErrManifestInvalid)
	}
	if len(m.Chunks) != m.TotalChunks {
		return fmt.Errorf("%w: %d chunk entries, total_chunks declares %d",
			common.ErrManifestInvalid, len(m.Chunks), m.TotalChunks)
	}

	var sum int64
	for i, c := range m.Chunks {
		// Strict positional match: rejects gaps and reordered entries.
		if c.Index != i {
			return fmt.Errorf("%w: chunk at position %d declares index %d",
				common.ErrManifestInvalid, i, c.Index)
		}
		if c.Hash == "" {
			return fmt.Errorf("%w: chunk %d has no hash", common.ErrManifestInvalid, i)
		}
		if c.Size <= 0 {
			return fmt.Errorf("%w: chunk %d has size %d", common.ErrManifestInvalid, i, c.Size)
		}
		sum += c.Size
	}

	if sum != m.TotalSize {
		return fmt.Errorf("%w: chunk sizes sum to %d, total_size declares %d",
			common.ErrManifestInvalid, sum, m.TotalSize)
	}

	return nil
}

// VerifyStored re-hashes every stored chunk under prefix and compares it to
// the manifest entry. This closes the producer trust gap Validate leaves
// open; enabled by configuration at completion time.
func (v *Validator) VerifyStored(ctx context.Context, store blob.Store, m *models.ChunkManifest, prefix string) error {
	for _, c := range m.Chunks {
		key := chunk.ObjectKey(prefix, c.Index)

		data, err := store.Get(ctx, key)
		if err != nil {
			return err
		}
		if data == nil {
			return fmt.Errorf("%w: chunk %d object missing from storage", common.ErrManifestInvalid, c.Index)
		}
		if int64(len(data)) != c.Size {
			return fmt.Errorf("%w: chunk %d stored size %d, manifest declares %d",
				common.ErrManifestInvalid, c.Index, len(data), c.Size)
		}
		if got := chunk.Hash(data); got != c.Hash {
			return fmt.Errorf("%w: chunk %d stored hash %s, manifest declares %s",
				common.ErrManifestInvalid, c.Index, got, c.Hash)
		}
	}
	return nil
}
