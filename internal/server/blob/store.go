// Package blob defines the object-storage port consumed by the transfer
// core, with an S3-compatible implementation and an in-memory one.
//
// Keys are opaque path-like strings; the chunk package is the sole owner of
// the chunk-key naming convention built on top of them.
package blob

import "context"

// Store is the object-storage contract: byte blobs addressed by key, with
// prefix listing for cleanup. Implementations must translate transport
// failures into errors wrapping common.ErrStorageUnavailable, and report a
// missing object from Get as (nil, nil) rather than an error.
type Store interface {
	// Put writes data under key, overwriting any previous object.
	Put(ctx context.Context, key string, data []byte) error
	// Get returns the object bytes, or nil with a nil error if absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the object; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// ListByPrefix returns the keys of all objects under prefix.
	ListByPrefix(ctx context.Context, prefix string) ([]string, error)
}
