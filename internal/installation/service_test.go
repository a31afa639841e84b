package installation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/installation"
	"github.com/cbamflow/cbamflow/internal/tenant"
	"github.com/cbamflow/cbamflow/internal/testing/memstore"
)

func scopeFor(store datastore.Store, tenantID string) *tenant.Scope {
	return &tenant.Scope{
		Store:    tenant.NewScopedStore(store, tenantID),
		TenantID: tenantID,
	}
}

func TestCreateChecksCompanyOwnership(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindCompany,
		datastore.Data{"id": "c1", "tenant_id": "tenant-a", "name": "Acme"})
	service := installation.NewService()
	ctx := context.Background()

	// Company from another tenant is invisible, so the create fails.
	_, err := service.Create(ctx, scopeFor(store, "tenant-b"), installation.Input{
		Name:      "Plant",
		CompanyID: "c1",
	})
	require.ErrorIs(t, err, datastore.ErrNotFound)

	record, err := service.Create(ctx, scopeFor(store, "tenant-a"), installation.Input{
		Name:      "Plant",
		CompanyID: "c1",
	})
	require.NoError(t, err)
	require.Equal(t, "tenant-a", record["tenant_id"])
}

func TestCreateDataParsesDates(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindInstallation,
		datastore.Data{"id": "i1", "tenant_id": "tenant-a", "name": "Plant"})
	service := installation.NewService()
	ctx := context.Background()

	record, err := service.CreateData(ctx, scopeFor(store, "tenant-a"), installation.DataInput{
		InstallationID: "i1",
		StartDate:      "2025-01-01",
		EndDate:        "2025-12-31",
	})
	require.NoError(t, err)
	start, ok := record["start_date"].(time.Time)
	require.True(t, ok)
	require.Equal(t, 2025, start.Year())

	_, err = service.CreateData(ctx, scopeFor(store, "tenant-a"), installation.DataInput{
		InstallationID: "i1",
		StartDate:      "not-a-date",
	})
	require.ErrorIs(t, err, installation.ErrInvalidDate)
}

func TestListDataFiltersByInstallation(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindInstallationData,
		datastore.Data{"id": "d1", "tenant_id": "tenant-a", "installation_id": "i1"},
		datastore.Data{"id": "d2", "tenant_id": "tenant-a", "installation_id": "i2"},
		datastore.Data{"id": "d3", "tenant_id": "tenant-b", "installation_id": "i1"})
	service := installation.NewService()

	records, err := service.ListData(context.Background(), scopeFor(store, "tenant-a"), "i1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "d1", records[0]["id"])

	records, err = service.ListData(context.Background(), scopeFor(store, "tenant-a"), "")
	require.NoError(t, err)
	require.Len(t, records, 2)
}
