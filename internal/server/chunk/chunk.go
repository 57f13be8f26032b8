// Package chunk owns the two conventions every chunk shares: the content
// digest and the object-storage key layout. Upload and download must go
// through ObjectKey so the naming stays consistent between write and read.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash computes the hex-encoded sha256 digest of the raw chunk bytes.
// Pure and deterministic; used to populate manifest entries at upload time
// and to re-verify stored bytes when verification is enabled.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ObjectKey returns the storage key of the chunk at index under prefix.
// The index is zero-padded to four digits so lexicographic listing order
// equals numeric chunk order.
func ObjectKey(prefix string, index int) string {
	return fmt.Sprintf("%s/chunk_%04d", prefix, index)
}
