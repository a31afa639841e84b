package tenant

import (
	"context"
	"errors"
	"net/http"
)

type scopeContextKey struct{}

// WithScope binds a resolved scope to the context.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext returns the request's scope or nil.
func ScopeFromContext(ctx context.Context) *Scope {
	scope, _ := ctx.Value(scopeContextKey{}).(*Scope)
	return scope
}

// Middleware resolves the tenant scope for every request and injects it
// into the context. Requests that cannot be bound to a tenant never
// reach the wrapped handler.
func (r *Resolver) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			scope, err := r.Resolve(req.Context())
			if err != nil {
				switch {
				case errors.Is(err, ErrUnauthenticated):
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				case errors.Is(err, ErrNoTenant):
					http.Error(w, "account is not assigned to a tenant", http.StatusForbidden)
				default:
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
				return
			}
			next.ServeHTTP(w, req.WithContext(WithScope(req.Context(), scope)))
		})
	}
}
