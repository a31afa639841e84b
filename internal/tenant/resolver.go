package tenant

import (
	"context"
	"errors"

	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/datastore"
)

var (
	// ErrUnauthenticated indicates no valid session exists.
	ErrUnauthenticated = errors.New("tenant: unauthenticated")
	// ErrNoTenant indicates a valid session without a tenant claim. This
	// is a hard failure: it must never degrade to an unscoped query.
	ErrNoTenant = errors.New("tenant: session carries no tenant")
)

// Claims are the session attributes the resolver needs. They are bound
// at login by the identity layer and read-only here.
type Claims struct {
	UserID      string
	Role        authz.Role
	TenantID    string
	TenantName  string
	Permissions []string
}

// SessionProvider yields the current request's claims. Implementations
// return ErrUnauthenticated (or nil claims) when no session exists.
type SessionProvider interface {
	Current(ctx context.Context) (*Claims, error)
}

// Scope is a tenant-bound data access handle plus the claims it was
// derived from. Constructed per request and discarded afterwards.
type Scope struct {
	Store    *ScopedStore
	Claims   *Claims
	TenantID string
}

// Resolver derives per-request tenant scopes from the session provider
// and the shared store client. The store client owns connection pooling;
// the resolver holds no mutable state of its own.
type Resolver struct {
	sessions SessionProvider
	store    datastore.Store
}

// NewResolver constructs a Resolver.
func NewResolver(sessions SessionProvider, store datastore.Store) *Resolver {
	return &Resolver{sessions: sessions, store: store}
}

// Resolve authenticates the request and returns a scope bound to the
// session's tenant. Fails closed: no session means ErrUnauthenticated, a
// session without a tenant claim means ErrNoTenant, and in neither case
// is any data handle returned.
func (r *Resolver) Resolve(ctx context.Context) (*Scope, error) {
	claims, err := r.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	if claims == nil || claims.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if claims.TenantID == "" {
		return nil, ErrNoTenant
	}
	return &Scope{
		Store:    NewScopedStore(r.store, claims.TenantID),
		Claims:   claims,
		TenantID: claims.TenantID,
	}, nil
}
