package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/elitestore/go-storefront/internal/identity"
)

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (identity.Principal, error)
}

type ctxKey int

const principalKey ctxKey = iota

// PrincipalFrom returns the principal the auth middleware resolved for
// this request. Handlers pass it explicitly into every data-access call.
func PrincipalFrom(ctx context.Context) (identity.Principal, bool) {
	p, ok := ctx.Value(principalKey).(identity.Principal)
	return p, ok
}

type Auth struct {
	Sessions SessionResolver
}

// Require resolves the bearer token to a principal or rejects with 401.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, apperr.Unauthorized("missing bearer token"))
			return
		}
		p, err := a.Sessions.Resolve(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

// RequireAdmin gates the back-office routes; it runs after Require.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			writeError(w, apperr.Unauthorized("no session"))
			return
		}
		if !p.IsAdmin() {
			writeError(w, apperr.Forbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
