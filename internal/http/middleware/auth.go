package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/auth"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// Authenticate requires a valid bearer token and stores its principal in the
// request context.
func Authenticate(authn Authenticator, onError ErrorHandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				onError(w, r, apperr.MissingTokenErr)
				return
			}

			p, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.NewContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(onError ErrorHandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				onError(w, r, apperr.MissingTokenErr)
				return
			}
			if !p.IsAdmin() {
				onError(w, r, apperr.PermissionDeniedErr)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken accepts "Bearer <token>" and, like older clients send, a bare token.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}
