package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go-storefront/internal/model"
)

type tokenValidator interface {
	Verify(tokenString string, expectedKind string) (*model.AuthClaims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

// AuthMiddleware is the access guard. It reads the bearer header only --
// never a cookie -- so protected routes stay immune to cross-site request
// forgery by construction.
type AuthMiddleware struct {
	validator tokenValidator
}

func NewAuthMiddleware(validator tokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeGuardError(w, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}

		accessToken := strings.TrimSpace(header[7:])
		claims, err := m.validator.Verify(accessToken, "access")
		if err != nil {
			// Expiry is routine here: it is the client's cue to refresh.
			writeGuardError(w, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles gates admin-only resources. Ownership checks are not done
// here: identity-scoped lookups answer not-found instead, in the services.
func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeGuardError(w, "UNAUTHORIZED", "authentication required")
				return
			}

			for _, role := range allowedRoles {
				if claims.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeGuardError(w, "FORBIDDEN", "insufficient permissions")
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*model.AuthClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*model.AuthClaims)
	return claims, ok
}

func writeGuardError(w http.ResponseWriter, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	switch code {
	case "FORBIDDEN", "INVALID_CSRF_TOKEN":
		w.WriteHeader(http.StatusForbidden)
	default:
		w.WriteHeader(http.StatusUnauthorized)
	}

	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
