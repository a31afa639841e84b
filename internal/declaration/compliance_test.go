package declaration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/declaration"
	"github.com/cbamflow/cbamflow/internal/testing/memstore"
)

func TestCreatePlanParsesValidityWindow(t *testing.T) {
	store := memstore.New()
	service := declaration.NewService()

	record, err := service.CreatePlan(context.Background(), scopeFor(store, "t1"), declaration.PlanInput{
		Name: "Monitoring 2026", ValidFrom: "2026-01-01",
	})
	require.NoError(t, err)
	require.Equal(t, "t1", record["tenant_id"])
	require.NotNil(t, record["valid_from"])
	require.Nil(t, record["valid_to"])

	_, err = service.CreatePlan(context.Background(), scopeFor(store, "t1"), declaration.PlanInput{
		Name: "Broken", ValidFrom: "01/01/2026",
	})
	require.ErrorIs(t, err, declaration.ErrInvalidDate)
}

func TestUpdatePlanKeepsUnsetFields(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindMonitoringPlan,
		datastore.Data{"id": "p1", "tenant_id": "t1", "name": "Monitoring 2026", "version": "1.0"})
	service := declaration.NewService()

	status := "ACTIVE"
	record, err := service.UpdatePlan(context.Background(), scopeFor(store, "t1"), "p1",
		declaration.PlanUpdate{Status: &status})
	require.NoError(t, err)
	require.Equal(t, "ACTIVE", record["status"])
	require.Equal(t, "1.0", record["version"])
}

func TestAuthorisationForeignTenantNotFound(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindAuthorisationApplication,
		datastore.Data{"id": "a1", "tenant_id": "t2", "applicant_name": "Acme GmbH"})
	service := declaration.NewService()

	status := "APPROVED"
	_, err := service.UpdateAuthorisation(context.Background(), scopeFor(store, "t1"), "a1",
		declaration.AuthorisationUpdate{Status: &status})
	require.ErrorIs(t, err, datastore.ErrNotFound)

	err = service.DeleteAuthorisation(context.Background(), scopeFor(store, "t1"), "a1")
	require.ErrorIs(t, err, datastore.ErrNotFound)
}
