package supplier_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/supplier"
	"github.com/cbamflow/cbamflow/internal/tenant"
	"github.com/cbamflow/cbamflow/internal/testing/memstore"
)

type mailSpy struct {
	to, name, url string
	calls         int
	err           error
}

func (m *mailSpy) SendInvitation(_ context.Context, to, name, inviteURL string) error {
	m.calls++
	m.to, m.name, m.url = to, name, inviteURL
	return m.err
}

func newService(mail supplier.InviteSender) *supplier.Service {
	return supplier.NewService(slog.Default(), mail, "https://cbam.example.com")
}

func scopeFor(store datastore.Store, tenantID, userID string) *tenant.Scope {
	return &tenant.Scope{
		Store:    tenant.NewScopedStore(store, tenantID),
		Claims:   &tenant.Claims{UserID: userID, Role: authz.RoleOperator, TenantID: tenantID},
		TenantID: tenantID,
	}
}

func TestInviteWritesTokenAndSendsMail(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindSupplier,
		datastore.Data{"id": "s1", "tenant_id": "t1", "name": "Steelworks", "email": "ops@steel.example"})
	mail := &mailSpy{}
	service := newService(mail)

	err := service.Invite(context.Background(), scopeFor(store, "t1", "u1"), "s1")
	require.NoError(t, err)

	record := store.Records(datastore.KindSupplier)[0]
	require.Equal(t, "INVITED", record["invitation_status"])
	token, _ := record["invitation_token"].(string)
	require.Len(t, token, 64)

	require.Equal(t, 1, mail.calls)
	require.Equal(t, "ops@steel.example", mail.to)
	require.Contains(t, mail.url, "https://cbam.example.com/supplier/register?token="+token)
}

func TestInviteRequiresEmail(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindSupplier,
		datastore.Data{"id": "s1", "tenant_id": "t1", "name": "Steelworks"})
	service := newService(&mailSpy{})

	err := service.Invite(context.Background(), scopeFor(store, "t1", "u1"), "s1")
	require.ErrorIs(t, err, supplier.ErrNoEmail)
}

func TestInviteForeignTenantNotFound(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindSupplier,
		datastore.Data{"id": "s1", "tenant_id": "t1", "email": "ops@steel.example"})
	service := newService(&mailSpy{})

	err := service.Invite(context.Background(), scopeFor(store, "t2", "u1"), "s1")
	require.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestProfileFindsLinkedSupplier(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindSupplier,
		datastore.Data{"id": "s1", "tenant_id": "t1", "user_id": "u1", "name": "Steelworks"},
		datastore.Data{"id": "s2", "tenant_id": "t1", "user_id": "u2", "name": "Foundry"})
	service := newService(&mailSpy{})

	record, err := service.Profile(context.Background(), scopeFor(store, "t1", "u1"))
	require.NoError(t, err)
	require.Equal(t, "s1", record["id"])

	_, err = service.Profile(context.Background(), scopeFor(store, "t1", "u9"))
	require.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestUpdateProfileKeepsUnsetFields(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindSupplier,
		datastore.Data{"id": "s1", "tenant_id": "t1", "user_id": "u1", "name": "Steelworks", "phone": "555"})
	service := newService(&mailSpy{})

	record, err := service.UpdateProfile(context.Background(), scopeFor(store, "t1", "u1"),
		supplier.ProfileInput{Name: "Steelworks Ltd"})
	require.NoError(t, err)
	require.Equal(t, "Steelworks Ltd", record["name"])
	require.Equal(t, "555", record["phone"])
}

func TestSurveyOwnershipChain(t *testing.T) {
	store := memstore.New()
	store.Seed(datastore.KindSupplier,
		datastore.Data{"id": "s1", "tenant_id": "t1", "name": "Steelworks"},
		datastore.Data{"id": "s2", "tenant_id": "t2", "name": "Foreign"})
	service := newService(&mailSpy{})
	ctx := context.Background()

	// Creating a survey under a foreign supplier fails.
	_, err := service.CreateSurvey(ctx, scopeFor(store, "t1", "u1"), supplier.SurveyInput{SupplierID: "s2"})
	require.ErrorIs(t, err, datastore.ErrNotFound)

	record, err := service.CreateSurvey(ctx, scopeFor(store, "t1", "u1"), supplier.SurveyInput{SupplierID: "s1"})
	require.NoError(t, err)
	require.Equal(t, "DRAFT", record["status"])
	id, _ := record["id"].(string)

	// A foreign tenant can neither submit nor delete it.
	err = service.SubmitSurvey(ctx, scopeFor(store, "t2", "u1"), id)
	require.ErrorIs(t, err, datastore.ErrNotFound)

	err = service.SubmitSurvey(ctx, scopeFor(store, "t1", "u1"), id)
	require.NoError(t, err)
	require.Equal(t, "SUBMITTED", store.Records(datastore.KindSupplierSurvey)[0]["status"])
}
