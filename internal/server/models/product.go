// Package models defines server-side data models persisted in the database
// and the ephemeral upload-session state held in memory.
package models

import "time"

// StoragePointerPending is the placeholder storage pointer a product carries
// until its upload completes. The transition pending -> populated is one-way.
const StoragePointerPending = "pending"

// Product describes a sellable binary asset. The content itself lives in
// object storage under StoragePointer; the manifest indexes its chunks.
type Product struct {
	// ID is the product UUID.
	ID string
	// OwnerIdentity is the stable identity of the producer who registered
	// the product. Ownership never transfers.
	OwnerIdentity string
	// Title is a human-readable name.
	Title string
	// ContentType is the MIME type of the assembled content.
	ContentType string
	// Size is the total content size in bytes.
	Size int64
	// ContentHash is the digest over the full assembled content.
	ContentHash string
	// StoragePointer is "pending" until upload completes, then the
	// finalized object-storage prefix of the chunk objects.
	StoragePointer string
	// Manifest is nil until an upload for this product completes.
	Manifest *ChunkManifest

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasContent reports whether the product's upload has completed, i.e. the
// manifest is committed and the storage pointer finalized.
func (p *Product) HasContent() bool {
	return p.Manifest != nil && p.StoragePointer != StoragePointerPending && p.StoragePointer != ""
}
