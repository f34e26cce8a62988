package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ethereum-tag-service/ets-server/internal/auth"
	"github.com/ethereum-tag-service/ets-server/internal/domain"
	"github.com/ethereum-tag-service/ets-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// claimsKey is the context key for the verified token claims.
const claimsKey ctxKey = "claims"

// GetClaims returns the verified token claims from context.
// Returns 401 error if the request is not authenticated.
func GetClaims(ctx context.Context) (*auth.AccessClaims, error) {
	claims, ok := ctx.Value(claimsKey).(*auth.AccessClaims)
	if !ok || claims == nil {
		return nil, huma.Error401Unauthorized("Authentication required")
	}
	return claims, nil
}

// GetCaller returns the authenticated address. It is the caller identity
// every mutating operation authorizes against.
func GetCaller(ctx context.Context) (domain.Address, error) {
	claims, err := GetClaims(ctx)
	if err != nil {
		return domain.Address{}, err
	}
	return claims.Address, nil
}

func setClaims(ctx context.Context, claims *auth.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// authMiddleware validates Bearer tokens and stores the claims in context.
// If no token is present or invalid, continues without claims; handlers use
// GetCaller to require authentication.
func authMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := authService.VerifyAccessToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setClaims(r.Context(), claims)))
		})
	}
}
