package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// AuthnMiddleware verifies the bearer session token and stores its claims in
// the request context. Requests without a valid session never reach the
// handler.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "The function must be called while authenticated.")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("session verify failed", "err", err)
				writeBearerError(w, "The session token is invalid or expired.")
				return
			}
			if claims.Subject == "" {
				writeBearerError(w, "The session token has no subject.")
				return
			}

			ctx = contextWithAuth(ctx, claims)
			slogx.WithCaller(ctx, claims.Subject, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750 challenge plus the usual JSON error body.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	WriteError(w, http.StatusUnauthorized, CodeUnauthenticated, desc)
}

// RequireRole rejects callers whose session role claim allowed does not
// accept. It runs before the handler reads the body, so nothing in a payload
// can affect the decision.
func RequireRole(allowed func(role string) bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := roleFromCtx(r.Context())
			if !allowed(role) {
				slogx.FromContext(r.Context()).Warn("role check failed", "role", role)
				WriteError(w, http.StatusForbidden, CodePermissionDenied, "Your role is not allowed to perform this action.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
