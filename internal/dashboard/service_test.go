package dashboard_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/dashboard"
	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/tenant"
	"github.com/cbamflow/cbamflow/internal/testing/memstore"
)

func scopeFor(store datastore.Store, tenantID string) *tenant.Scope {
	return &tenant.Scope{
		Store:    tenant.NewScopedStore(store, tenantID),
		Claims:   &tenant.Claims{UserID: "u1", Role: authz.RoleOperator, TenantID: tenantID},
		TenantID: tenantID,
	}
}

func TestOverviewCountsOnlyOwnTenant(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindCompany,
		datastore.Data{"id": "c1", "tenant_id": "t1", "name": "Own"},
		datastore.Data{"id": "c2", "tenant_id": "t2", "name": "Foreign"})
	store.Seed(datastore.KindInstallation,
		datastore.Data{"id": "i1", "tenant_id": "t1", "name": "Plant"})
	store.Seed(datastore.KindInstallationData,
		datastore.Data{"id": "p1", "tenant_id": "t1", "installation_id": "i1"},
		datastore.Data{"id": "p2", "tenant_id": "t2", "installation_id": "i9"})
	store.Seed(datastore.KindEmission,
		datastore.Data{"id": "e1", "installation_data_id": "p1"},
		datastore.Data{"id": "e2", "installation_data_id": "p1"},
		datastore.Data{"id": "e3", "installation_data_id": "p2"})
	store.Seed(datastore.KindAnnualDeclaration,
		datastore.Data{"id": "d1", "tenant_id": "t1", "year": 2026})

	overview, err := dashboard.NewService().Overview(context.Background(), scopeFor(store, "t1"))
	require.NoError(t, err)
	require.Equal(t, int64(1), overview.Stats.Companies)
	require.Equal(t, int64(1), overview.Stats.Installations)
	require.Equal(t, int64(2), overview.Stats.Emissions)
	require.Equal(t, int64(0), overview.Stats.Reports)
	require.Equal(t, int64(1), overview.Stats.Declarations)
	require.Len(t, overview.RecentDeclarations, 1)
	require.Empty(t, overview.RecentReports)
}

func TestOverviewEmptyTenant(t *testing.T) {
	store := memstore.New()
	overview, err := dashboard.NewService().Overview(context.Background(), scopeFor(store, "t1"))
	require.NoError(t, err)
	require.Equal(t, dashboard.Stats{}, overview.Stats)
	require.NotNil(t, overview.RecentDeclarations)
	require.NotNil(t, overview.RecentReports)
}
