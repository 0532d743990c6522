package http

import (
	"net/http"
	"strings"

	"affiliate-ledger-backend/internal/logger"
	"affiliate-ledger-backend/internal/security"
)

// OperatorAuthMiddleware guards the admin surface. Every request must
// carry a bearer token with the operator role.
func OperatorAuthMiddleware(tokenManager security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "authorization header is required")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "authorization header must be a bearer token")
				return
			}

			claims, err := tokenManager.ValidateToken(parts[1])
			if err != nil {
				logger.Warn("Admin token rejected", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if !claims.HasRole(security.RoleOperator) {
				writeError(w, http.StatusForbidden, "operator role required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
