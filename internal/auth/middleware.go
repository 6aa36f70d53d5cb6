package auth

import (
	"net/http"
	"strings"
)

// RequireRole wraps a handler so it only runs with a valid Bearer token
// carrying the given role. Admins pass every role check.
func RequireRole(tm *TokenManager, role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		claims, err := tm.Verify(tokenString)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		if claims.Role != role && claims.Role != RoleAdmin {
			http.Error(w, "insufficient permissions", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}
