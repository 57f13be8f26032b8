package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/server/auth"
)

type ctxKey string

const identityKey ctxKey = "identity"

// authMiddleware verifies the access token and stores the requester
// identity in the request context. Verification failure is "no identity"
// and always resolves to 401, never to an allow.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, r, common.ErrorUnauthorized)
			return
		}

		identity, err := auth.GetIdentityFromToken(token, s.jwtSecret)
		if err != nil {
			writeError(w, r, common.ErrorUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.Header.Get(common.AccessTokenHeaderName)
}

// identityFrom returns the verified requester identity, or "" when the
// middleware did not run (which downstream code treats as unauthorized).
func identityFrom(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey).(string)
	return identity
}
