// Package middleware provides HTTP middleware shared across routes.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/orgvault/orgvault/internal/domain"
	"github.com/orgvault/orgvault/internal/domain/admin"
	"github.com/orgvault/orgvault/internal/service"
)

type claimsCtxKey struct{}

// Auth returns middleware that validates the Authorization bearer token
// and stores the verified claims in the request context.
func Auth(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "authorization required")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				unauthorized(w, "invalid authorization header")
				return
			}

			claims, err := authSvc.ValidateAccessToken(token)
			if err != nil {
				if errors.Is(err, domain.ErrTokenExpired) {
					unauthorized(w, "token has expired")
					return
				}
				unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsCtxKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified admin claims from the request
// context, or nil when the request was not authenticated.
func ClaimsFromContext(ctx context.Context) *admin.Claims {
	claims, _ := ctx.Value(claimsCtxKey{}).(*admin.Claims)
	return claims
}

// WithClaims injects claims into a context. Exported for handler tests.
func WithClaims(ctx context.Context, claims *admin.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, claims)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + msg + `"}`))
}
