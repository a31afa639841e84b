package declaration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/declaration"
	"github.com/cbamflow/cbamflow/internal/tenant"
	"github.com/cbamflow/cbamflow/internal/testing/memstore"
)

func scopeFor(store datastore.Store, tenantID string) *tenant.Scope {
	return &tenant.Scope{
		Store:    tenant.NewScopedStore(store, tenantID),
		Claims:   &tenant.Claims{UserID: "u1", Role: authz.RoleDeclarant, TenantID: tenantID},
		TenantID: tenantID,
	}
}

func TestCreateStampsTenantAndDraftStatus(t *testing.T) {
	store := memstore.New()
	service := declaration.NewService()

	record, err := service.Create(context.Background(), scopeFor(store, "t1"), declaration.Input{Year: 2026})
	require.NoError(t, err)
	require.Equal(t, "t1", record["tenant_id"])
	require.Equal(t, declaration.StatusDraft, record["status"])
	require.Equal(t, 2026, record["year"])
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindAnnualDeclaration,
		datastore.Data{"id": "d1", "tenant_id": "t1", "year": 2026, "status": declaration.StatusDraft})
	service := declaration.NewService()

	bogus := "APPROVED"
	_, err := service.Update(context.Background(), scopeFor(store, "t1"), "d1", declaration.UpdateInput{Status: &bogus})
	require.ErrorIs(t, err, declaration.ErrInvalidStatus)

	verified := declaration.StatusVerified
	record, err := service.Update(context.Background(), scopeFor(store, "t1"), "d1", declaration.UpdateInput{Status: &verified})
	require.NoError(t, err)
	require.Equal(t, declaration.StatusVerified, record["status"])
}

func TestSubmitStampsDate(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindAnnualDeclaration,
		datastore.Data{"id": "d1", "tenant_id": "t1", "year": 2026, "status": declaration.StatusDraft})
	service := declaration.NewService()

	record, err := service.Submit(context.Background(), scopeFor(store, "t1"), "d1")
	require.NoError(t, err)
	require.Equal(t, declaration.StatusSubmitted, record["status"])
	require.NotNil(t, record["submission_date"])
}

func TestGetAttachesChildrenAndScopesTenant(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindAnnualDeclaration,
		datastore.Data{"id": "d1", "tenant_id": "t1", "year": 2026, "status": declaration.StatusDraft},
		datastore.Data{"id": "d2", "tenant_id": "t2", "year": 2026, "status": declaration.StatusDraft})
	store.Seed(datastore.KindCertificateSurrender,
		datastore.Data{"id": "cs1", "declaration_id": "d1", "certificate_id": "c1", "quantity": 5.0})
	store.Seed(datastore.KindFreeAllocationAdjustment,
		datastore.Data{"id": "fa1", "declaration_id": "d1", "adjustment_type": "CORRECTION", "amount": -2.5})
	service := declaration.NewService()

	record, err := service.Get(context.Background(), scopeFor(store, "t1"), "d1")
	require.NoError(t, err)
	require.Len(t, record["certificateSurrenders"], 1)
	require.Len(t, record["freeAllocationAdjustments"], 1)

	_, err = service.Get(context.Background(), scopeFor(store, "t1"), "d2")
	require.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestSurrenderRequiresOwnedRecordsAndBalance(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindAnnualDeclaration,
		datastore.Data{"id": "d1", "tenant_id": "t1", "year": 2026, "status": declaration.StatusDraft})
	store.Seed(datastore.KindCbamCertificate,
		datastore.Data{"id": "c1", "tenant_id": "t1", "certificate_no": "CB-1", "quantity": 10.0},
		datastore.Data{"id": "c2", "tenant_id": "t2", "certificate_no": "CB-2", "quantity": 10.0})
	service := declaration.NewService()
	ctx := context.Background()

	// Foreign certificate is invisible.
	_, err := service.CreateSurrender(ctx, scopeFor(store, "t1"), declaration.SurrenderInput{
		CertificateID: "c2", DeclarationID: "d1", Quantity: 1, SurrenderDate: "2026-05-31",
	})
	require.ErrorIs(t, err, datastore.ErrNotFound)

	record, err := service.CreateSurrender(ctx, scopeFor(store, "t1"), declaration.SurrenderInput{
		CertificateID: "c1", DeclarationID: "d1", Quantity: 6, SurrenderDate: "2026-05-31",
	})
	require.NoError(t, err)
	require.Equal(t, 6.0, record["quantity"])

	// Only 4 remain on the certificate.
	_, err = service.CreateSurrender(ctx, scopeFor(store, "t1"), declaration.SurrenderInput{
		CertificateID: "c1", DeclarationID: "d1", Quantity: 5, SurrenderDate: "2026-05-31",
	})
	require.ErrorIs(t, err, declaration.ErrInsufficientBalance)
}

func TestBalanceSumsHeldAndSurrendered(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindCbamCertificate,
		datastore.Data{"id": "c1", "tenant_id": "t1", "certificate_no": "CB-1", "quantity": 10.0},
		datastore.Data{"id": "c2", "tenant_id": "t1", "certificate_no": "CB-2", "quantity": 5.0},
		datastore.Data{"id": "c9", "tenant_id": "t2", "certificate_no": "XX-9", "quantity": 100.0})
	store.Seed(datastore.KindCertificateSurrender,
		datastore.Data{"id": "cs1", "declaration_id": "d1", "certificate_id": "c1", "quantity": 4.0})
	service := declaration.NewService()

	balance, err := service.Balance(context.Background(), scopeFor(store, "t1"))
	require.NoError(t, err)
	require.Equal(t, int64(2), balance.Certificates)
	require.Equal(t, 15.0, balance.Held)
	require.Equal(t, 4.0, balance.Surrendered)
	require.Equal(t, 11.0, balance.Available)
}

func TestDeleteSurrenderChecksDeclarationOwnership(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindAnnualDeclaration,
		datastore.Data{"id": "d2", "tenant_id": "t2", "year": 2026, "status": declaration.StatusDraft})
	store.Seed(datastore.KindCertificateSurrender,
		datastore.Data{"id": "cs1", "declaration_id": "d2", "certificate_id": "c1", "quantity": 1.0})
	service := declaration.NewService()

	err := service.DeleteSurrender(context.Background(), scopeFor(store, "t1"), "cs1")
	require.ErrorIs(t, err, datastore.ErrNotFound)
	require.Len(t, store.Records(datastore.KindCertificateSurrender), 1)
}

func TestAdjustmentRequiresOwnedDeclaration(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindAnnualDeclaration,
		datastore.Data{"id": "d1", "tenant_id": "t1", "year": 2026, "status": declaration.StatusDraft},
		datastore.Data{"id": "d2", "tenant_id": "t2", "year": 2026, "status": declaration.StatusDraft})
	service := declaration.NewService()
	ctx := context.Background()

	_, err := service.CreateAdjustment(ctx, scopeFor(store, "t1"), declaration.AdjustmentInput{
		DeclarationID: "d2", AdjustmentType: "CORRECTION", Amount: 1,
	})
	require.ErrorIs(t, err, datastore.ErrNotFound)

	record, err := service.CreateAdjustment(ctx, scopeFor(store, "t1"), declaration.AdjustmentInput{
		DeclarationID: "d1", AdjustmentType: "CORRECTION", Amount: -2.5, Description: "audit finding",
	})
	require.NoError(t, err)
	require.Equal(t, -2.5, record["amount"])
}

func TestCertificateQuantityDefaultsToOne(t *testing.T) {
	store := memstore.New()
	service := declaration.NewService()

	record, err := service.CreateCertificate(context.Background(), scopeFor(store, "t1"), declaration.CertificateInput{
		CertificateNo: "CB-1", IssueDate: "2026-01-15",
	})
	require.NoError(t, err)
	require.Equal(t, 1, record["quantity"])
	require.Nil(t, record["expiry_date"])

	_, err = service.CreateCertificate(context.Background(), scopeFor(store, "t1"), declaration.CertificateInput{
		CertificateNo: "CB-2", IssueDate: "not a date",
	})
	require.ErrorIs(t, err, declaration.ErrInvalidDate)
}
