package tenant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

type stubSessions struct {
	claims *tenant.Claims
	err    error
}

func (s *stubSessions) Current(context.Context) (*tenant.Claims, error) {
	return s.claims, s.err
}

func TestResolveWithoutSession(t *testing.T) {
	resolver := tenant.NewResolver(&stubSessions{}, newMemStore())

	_, err := resolver.Resolve(context.Background())
	require.ErrorIs(t, err, tenant.ErrUnauthenticated)
}

func TestResolveProviderError(t *testing.T) {
	resolver := tenant.NewResolver(&stubSessions{err: tenant.ErrUnauthenticated}, newMemStore())

	_, err := resolver.Resolve(context.Background())
	require.ErrorIs(t, err, tenant.ErrUnauthenticated)
}

func TestResolveSessionWithoutTenantClaim(t *testing.T) {
	resolver := tenant.NewResolver(&stubSessions{claims: &tenant.Claims{
		UserID: "u1",
		Role:   authz.RoleOperator,
	}}, newMemStore())

	_, err := resolver.Resolve(context.Background())
	require.ErrorIs(t, err, tenant.ErrNoTenant)
}

func TestResolveBindsScopeToSessionTenant(t *testing.T) {
	resolver := tenant.NewResolver(&stubSessions{claims: &tenant.Claims{
		UserID:     "u1",
		Role:       authz.RoleOperator,
		TenantID:   "tenant-a",
		TenantName: "Acme Holding",
	}}, newMemStore())

	scope, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tenant-a", scope.TenantID)
	require.Equal(t, "tenant-a", scope.Store.TenantID())
	require.Equal(t, authz.RoleOperator, scope.Claims.Role)
}
