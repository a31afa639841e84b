package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMenuForSuperAdmin(t *testing.T) {
	menu := MenuForRole(RoleSuperAdmin)
	require.True(t, menu.ShowCompanies)
	require.True(t, menu.ShowUserManagement)
	require.True(t, menu.ShowAiAnalysis)
	// The portal is exclusive to the SUPPLIER role.
	require.False(t, menu.ShowSupplierPortal)
}

func TestMenuForOperator(t *testing.T) {
	menu := MenuForRole(RoleOperator)
	require.True(t, menu.ShowCompanies)
	require.True(t, menu.ShowInstallations)
	require.True(t, menu.ShowEmissions)
	require.True(t, menu.ShowDeclarations)
	require.False(t, menu.ShowUserManagement)
	require.False(t, menu.ShowSupplierPortal)
}

func TestMenuForSupplier(t *testing.T) {
	menu := MenuForRole(RoleSupplier)
	require.True(t, menu.ShowSupplierPortal)
	require.False(t, menu.ShowCompanies)
	require.False(t, menu.ShowInstallations)
	require.False(t, menu.ShowInstallationData)
	require.False(t, menu.ShowReports)
	require.False(t, menu.ShowSettings)
	require.False(t, menu.ShowUserManagement)
}

func TestMenuForDeclarant(t *testing.T) {
	menu := MenuForRole(RoleDeclarant)
	require.True(t, menu.ShowDeclarations)
	require.False(t, menu.ShowCompanies)
	require.False(t, menu.ShowSupplierPortal)
}
