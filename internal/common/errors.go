// Package common defines shared constants and sentinel errors used across
// the chunkvault server layers. Callers should use errors.Is to match these
// values; contextual detail (which index, which field, which product) is
// attached by wrapping, e.g. fmt.Errorf("%w: chunk index 5", ErrInvalidChunkIndex).
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrProductNotFound = errors.New("product not found")

	// Upload session lifecycle errors.
	ErrSessionNotFound   = errors.New("upload session not found")
	ErrInvalidChunkIndex = errors.New("invalid chunk index")
	ErrIncompleteUpload  = errors.New("incomplete upload")

	// Manifest validation errors. Always wrapped with the specific
	// missing-field or index-mismatch detail, never returned bare.
	ErrManifestInvalid = errors.New("manifest invalid")

	// Authorization errors. AccessDenied is a decision, distinct from
	// not-found; Unauthorized means no verified identity at all.
	ErrAccessDenied   = errors.New("access denied")
	ErrorUnauthorized = errors.New("unauthorized")

	// Infrastructure errors. The only kind eligible for caller-side retry.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
