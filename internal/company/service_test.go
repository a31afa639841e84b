package company_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbamflow/cbamflow/internal/company"
	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/tenant"
	"github.com/cbamflow/cbamflow/internal/testing/memstore"
)

func scopeFor(store datastore.Store, tenantID string) *tenant.Scope {
	return &tenant.Scope{
		Store:    tenant.NewScopedStore(store, tenantID),
		TenantID: tenantID,
	}
}

func TestCreateAndListScoped(t *testing.T) {
	store := memstore.New()
	service := company.NewService()
	ctx := context.Background()

	scopeA := scopeFor(store, "tenant-a")
	scopeB := scopeFor(store, "tenant-b")

	record, err := service.Create(ctx, scopeA, company.Input{Name: "Acme Steel", Email: "info@acme.com"})
	require.NoError(t, err)
	require.Equal(t, "tenant-a", record["tenant_id"])
	require.NotEmpty(t, record["id"])

	records, err := service.List(ctx, scopeA)
	require.NoError(t, err)
	require.Len(t, records, 1)

	records, err = service.List(ctx, scopeB)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestGetIncludesInstallations(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindCompany,
		datastore.Data{"id": "c1", "tenant_id": "tenant-a", "name": "Acme"})
	store.Seed(datastore.KindInstallation,
		datastore.Data{"id": "i1", "tenant_id": "tenant-a", "company_id": "c1", "name": "Plant 1"},
		datastore.Data{"id": "i2", "tenant_id": "tenant-b", "company_id": "c1", "name": "Foreign"})
	service := company.NewService()

	record, err := service.Get(context.Background(), scopeFor(store, "tenant-a"), "c1")
	require.NoError(t, err)
	installations, ok := record["installations"].([]datastore.Record)
	require.True(t, ok)
	require.Len(t, installations, 1)
	require.Equal(t, "Plant 1", installations[0]["name"])
}

func TestGetForeignTenantNotFound(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindCompany,
		datastore.Data{"id": "c1", "tenant_id": "tenant-a", "name": "Acme"})
	service := company.NewService()

	_, err := service.Get(context.Background(), scopeFor(store, "tenant-b"), "c1")
	require.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestUpdateClearsOptionalFields(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindCompany,
		datastore.Data{"id": "c1", "tenant_id": "tenant-a", "name": "Acme", "email": "old@acme.com"})
	service := company.NewService()

	record, err := service.Update(context.Background(), scopeFor(store, "tenant-a"), "c1",
		company.Input{Name: "Acme Steel"})
	require.NoError(t, err)
	require.Equal(t, "Acme Steel", record["name"])
	require.Nil(t, record["email"])
}

func TestDeleteForeignTenantNotFound(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindCompany,
		datastore.Data{"id": "c1", "tenant_id": "tenant-a", "name": "Acme"})
	service := company.NewService()

	err := service.Delete(context.Background(), scopeFor(store, "tenant-b"), "c1")
	require.ErrorIs(t, err, datastore.ErrNotFound)

	err = service.Delete(context.Background(), scopeFor(store, "tenant-a"), "c1")
	require.NoError(t, err)
	require.Empty(t, store.Records(datastore.KindCompany))
}
