package models

import "time"

// KeyGrant authorizes a recipient to decrypt a product's content. It is
// also the second factor of the download gate: a paid transfer alone does
// not grant access without a live (unexpired) key grant.
type KeyGrant struct {
	ID        string
	ProductID string
	// RecipientIdentity is the identity the grant was minted for.
	RecipientIdentity string
	// KeyEnvelope is opaque ciphertext of the content decryption key.
	// The transfer core stores and returns it but never interprets it.
	KeyEnvelope []byte
	// ExpiresAt bounds the grant in time; valid only while now < ExpiresAt.
	ExpiresAt time.Time

	CreatedAt time.Time
}

// Live reports whether the grant is still valid at the given instant.
func (g *KeyGrant) Live(now time.Time) bool {
	return now.Before(g.ExpiresAt)
}
