package models

import "time"

// UploadSession is the ephemeral server-side state of one in-progress
// chunked upload. It is created by upload initialization, mutated only by
// chunk admission, and destroyed by completion or the expiry sweep.
//
// Invariant: every member of UploadedChunks lies in [0, ExpectedChunks).
type UploadSession struct {
	// UploadID is the opaque unique session token.
	UploadID string
	// ProductID is the product the upload populates.
	ProductID string
	// StoragePrefix is the deterministic object-storage prefix derived
	// from ProductID and UploadID; chunk objects live under it.
	StoragePrefix string
	// ChunkSize is the producer-chosen chunk size in bytes.
	ChunkSize int64
	// TotalSize is the declared total content size in bytes.
	TotalSize int64
	// ExpectedChunks = ceil(TotalSize / ChunkSize).
	ExpectedChunks int
	// UploadedChunks is the set of admitted chunk indices. Re-uploading
	// an index is idempotent with respect to membership.
	UploadedChunks map[int]struct{}
	CreatedAt      time.Time
}

// Complete reports whether every expected chunk index has been uploaded.
// Upload order is irrelevant; only set cardinality matters because
// admission already bounds indices to [0, ExpectedChunks).
func (s *UploadSession) Complete() bool {
	return len(s.UploadedChunks) == s.ExpectedChunks
}
