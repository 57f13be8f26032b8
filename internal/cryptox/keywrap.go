// Package cryptox implements the key-envelope primitive used when minting
// key grants. A product's content key is sealed with an AEAD under a
// recipient-scoped wrapping key; the resulting envelope is stored opaquely
// on the grant and never interpreted by the transfer core.
package cryptox

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// SealKey encrypts contentKey with XChaCha20-Poly1305 under wrappingKey.
//
// The wrapping key must be 32 bytes. A fresh random nonce is generated for
// every call and prepended to the ciphertext, so the returned envelope is
// self-contained.
func SealKey(contentKey, wrappingKey []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(wrappingKey)
	if err != nil {
		return nil, fmt.Errorf("aead init: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, contentKey, nil), nil
}

// OpenKey reverses SealKey, returning the content key or an error if the
// envelope is malformed or the wrapping key does not match.
func OpenKey(envelope, wrappingKey []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(wrappingKey)
	if err != nil {
		return nil, fmt.Errorf("aead init: %w", err)
	}

	if len(envelope) < aead.NonceSize() {
		return nil, fmt.Errorf("envelope too short: %d bytes", len(envelope))
	}

	nonce, ciphertext := envelope[:aead.NonceSize()], envelope[aead.NonceSize():]

	contentKey, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("envelope open: %w", err)
	}

	return contentKey, nil
}
