package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/utils"
)

type contextKey string

const claimsKey contextKey = "claims"

// Middleware verifies the bearer token and stores the caller's claims on the context.
func Middleware(v Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}

			claims, err := v.Verify(r.Context(), raw)
			if err != nil {
				log.LogSecurity("token_rejected", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// Require answers 403 unless the caller holds permission. It must run after Middleware.
func Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", ErrMissingToken)
				return
			}
			if !claims.Can(permission) {
				utils.WriteError(w, http.StatusForbidden, "Forbidden", fmt.Errorf("missing permission %q", permission))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserID returns the caller's subject, or "" outside an authenticated request.
func UserID(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.Subject
	}
	return ""
}
