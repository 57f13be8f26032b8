package models

// ChunkInfo is one manifest entry describing a single stored chunk.
type ChunkInfo struct {
	// Index is the zero-based chunk position; must equal the entry's
	// position in the manifest's Chunks slice.
	Index int `json:"index"`
	// Hash is the content digest of the chunk bytes (hex sha256).
	Hash string `json:"hash"`
	// Size is the chunk length in bytes.
	Size int64 `json:"size"`
}

// ChunkManifest is the authoritative index of all chunks composing a
// product's content. Immutable once accepted by upload completion.
type ChunkManifest struct {
	Chunks      []ChunkInfo `json:"chunks"`
	TotalChunks int         `json:"total_chunks"`
	ChunkSize   int64       `json:"chunk_size"`
	TotalSize   int64       `json:"total_size"`
	// ContentHash is the digest over the full assembled content, not the
	// concatenation of per-chunk hashes.
	ContentHash string `json:"content_hash"`
}
