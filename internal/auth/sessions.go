package auth

import (
	"context"

	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/shared"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

// SessionClaims adapts the request-scoped shared session to the tenant
// resolver's provider interface.
type SessionClaims struct{}

// Current returns the claims bound to the request session.
func (SessionClaims) Current(ctx context.Context) (*tenant.Claims, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil || !sess.Authenticated() {
		return nil, tenant.ErrUnauthenticated
	}
	identity := sess.Identity()
	role, err := authz.ParseRole(identity.Role)
	if err != nil {
		// A session with a role outside the closed set is treated as
		// unauthenticated rather than silently downgraded.
		return nil, tenant.ErrUnauthenticated
	}
	return &tenant.Claims{
		UserID:      identity.UserID,
		Role:        role,
		TenantID:    identity.TenantID,
		TenantName:  identity.TenantName,
		Permissions: identity.Permissions,
	}, nil
}

var _ tenant.SessionProvider = SessionClaims{}
