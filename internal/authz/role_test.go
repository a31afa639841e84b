package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasMinimumRoleReflexive(t *testing.T) {
	for _, role := range Roles() {
		require.True(t, HasMinimumRole(role, role), "role %s must satisfy itself", role)
	}
}

func TestSuperAdminSatisfiesEverything(t *testing.T) {
	for _, role := range Roles() {
		require.True(t, HasMinimumRole(RoleSuperAdmin, role))
	}
}

func TestSupplierOnlySatisfiesItself(t *testing.T) {
	for _, role := range Roles() {
		got := HasMinimumRole(RoleSupplier, role)
		require.Equal(t, role == RoleSupplier, got, "SUPPLIER vs %s", role)
	}
}

func TestHierarchyOrder(t *testing.T) {
	require.True(t, HasMinimumRole(RoleVerifier, RoleSupplier))
	require.True(t, HasMinimumRole(RoleDeclarant, RoleVerifier))
	require.True(t, HasMinimumRole(RoleOperator, RoleDeclarant))
	require.True(t, HasMinimumRole(RoleCompanyAdmin, RoleOperator))
	require.False(t, HasMinimumRole(RoleOperator, RoleCompanyAdmin))
}

func TestRankIsTotalOrder(t *testing.T) {
	roles := Roles()
	for i := 1; i < len(roles); i++ {
		require.Greater(t, Rank(roles[i]), Rank(roles[i-1]))
	}
}

func TestRankTableCoversEveryRole(t *testing.T) {
	// The rank table is maintained by hand; a role missing from it would
	// silently rank below SUPPLIER.
	for _, role := range Roles() {
		require.NotZero(t, Rank(role), "role %s missing from rank table", role)
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("company_admin")
	require.NoError(t, err)
	require.Equal(t, RoleCompanyAdmin, role)

	_, err = ParseRole("ROOT")
	require.Error(t, err)

	require.False(t, Valid(Role("ROOT")))
	require.Zero(t, Rank(Role("ROOT")))
}
