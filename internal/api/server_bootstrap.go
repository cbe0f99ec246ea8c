package api

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// adminClaims is the minimal claim set carried by an operator token: just a
// marker that this is an admin-scoped token. Tokens are not expiry-checked —
// a shared, long-lived operator credential rather than a per-session login.
type adminClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// NewAdminToken signs a long-lived operator token with secret, for
// out-of-band distribution to whoever runs the admin CLI/UI.
func NewAdminToken(secret string) (string, error) {
	claims := adminClaims{Admin: true}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

// adminAuthMiddleware verifies the Authorization header carries a valid,
// admin-scoped HS256 JWT signed with the server's admin secret.
func (s *Server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.adminSecret) == 0 {
			writeAPIError(w, http.StatusForbidden, "admin API disabled: no admin secret configured")
			return
		}

		header := r.Header.Get("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			writeAPIError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims := &adminClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return s.adminSecret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid || !claims.Admin {
			writeAPIError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
