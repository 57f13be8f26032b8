// Package auth is the authenticator adapter: it turns a bearer token into
// a stable requester identity, or fails. Any failure means "no identity";
// the boundary layer maps that to 401, never to an allow.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ava-vs/chunkvault/internal/common"
)

// Claims carries the standard registered claims plus the requester
// identity the access gate keys on.
type Claims struct {
	jwt.RegisteredClaims
	Identity string
}

// GenerateToken signs an HS256 token for the given identity.
func GenerateToken(identity string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Identity: identity,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetIdentityFromToken verifies the token signature and expiry and returns
// the embedded identity.
func GetIdentityFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid || claims.Identity == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Identity, nil
}
