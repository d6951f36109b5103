package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator validates access tokens minted at login.
type TokenValidator interface {
	Validate(tokenString string) (*AuthClaims, error)
}

// AuthClaims is the verified identity attached to authenticated requests.
type AuthClaims struct {
	IssuerID string
	Role     string
}

type contextKeyClaims struct{}

// GetAuthClaims retrieves the authenticated issuer claims from the context,
// or nil for unauthenticated requests.
func GetAuthClaims(ctx context.Context) *AuthClaims {
	claims, ok := ctx.Value(contextKeyClaims{}).(*AuthClaims)
	if !ok {
		return nil
	}
	return claims
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// verified (issuer id, role) pair to the request context. Downstream code
// trusts that pair completely.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, "Missing bearer token")
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyClaims{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
