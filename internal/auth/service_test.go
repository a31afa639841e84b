package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cbamflow/cbamflow/internal/auth"
	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/shared"
)

type stubRepo struct {
	usersByEmail map[string]*auth.User
	usersByID    map[string]*auth.User
	tenants      map[string]*auth.Tenant
	byDomain     map[string]*auth.Tenant
	created      []*auth.User
	updatedHash  string
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		usersByEmail: make(map[string]*auth.User),
		usersByID:    make(map[string]*auth.User),
		tenants:      make(map[string]*auth.Tenant),
		byDomain:     make(map[string]*auth.Tenant),
	}
}

func (s *stubRepo) addUser(user *auth.User) {
	s.usersByEmail[user.Email] = user
	s.usersByID[user.ID] = user
}

func (s *stubRepo) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	if user, ok := s.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindUserByID(_ context.Context, id string) (*auth.User, error) {
	if user, ok := s.usersByID[id]; ok {
		return user, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) CreateUser(_ context.Context, user *auth.User) error {
	if _, ok := s.usersByEmail[user.Email]; ok {
		return auth.ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = "u-new"
	}
	s.addUser(user)
	s.created = append(s.created, user)
	return nil
}

func (s *stubRepo) UpdatePassword(_ context.Context, userID, hash string) error {
	if _, ok := s.usersByID[userID]; !ok {
		return shared.ErrNotFound
	}
	s.updatedHash = hash
	return nil
}

func (s *stubRepo) FindTenantByID(_ context.Context, id string) (*auth.Tenant, error) {
	if tenant, ok := s.tenants[id]; ok {
		return tenant, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindTenantBySlug(_ context.Context, slug string) (*auth.Tenant, error) {
	for _, tenant := range s.tenants {
		if tenant.Slug == slug {
			return tenant, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindActiveTenantByDomain(_ context.Context, domains []string) (*auth.Tenant, error) {
	for _, domain := range domains {
		if tenant, ok := s.byDomain[domain]; ok && tenant.IsActive {
			return tenant, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) ListActiveTenants(_ context.Context) ([]auth.Tenant, error) {
	var out []auth.Tenant
	for _, tenant := range s.tenants {
		if tenant.IsActive {
			out = append(out, *tenant)
		}
	}
	return out, nil
}

var _ auth.Repository = (*stubRepo)(nil)

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestLoginSuccessResolvesTenant(t *testing.T) {
	repo := newStubRepo()
	repo.tenants["t1"] = &auth.Tenant{ID: "t1", Name: "Ecosfer", IsActive: true}
	repo.addUser(&auth.User{
		ID:           "u1",
		Email:        "ops@ecosfer.com",
		PasswordHash: hash(t, "Passw0rd"),
		Role:         authz.RoleOperator,
		TenantID:     "t1",
		IsActive:     true,
	})
	service := auth.NewService(repo)

	user, tenant, err := service.Login(context.Background(), "Ops@Ecosfer.com ", "Passw0rd")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.NotNil(t, tenant)
	require.Equal(t, "Ecosfer", tenant.Name)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newStubRepo()
	repo.addUser(&auth.User{
		ID:           "u1",
		Email:        "ops@ecosfer.com",
		PasswordHash: hash(t, "Passw0rd"),
		IsActive:     true,
	})
	service := auth.NewService(repo)

	_, _, err := service.Login(context.Background(), "ops@ecosfer.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	repo := newStubRepo()
	repo.addUser(&auth.User{
		ID:           "u1",
		Email:        "ops@ecosfer.com",
		PasswordHash: hash(t, "Passw0rd"),
		IsActive:     false,
	})
	service := auth.NewService(repo)

	_, _, err := service.Login(context.Background(), "ops@ecosfer.com", "Passw0rd")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginFallsBackToDomainTenant(t *testing.T) {
	repo := newStubRepo()
	repo.byDomain["roder.com"] = &auth.Tenant{ID: "t2", Name: "Roder", Domain: "roder.com", IsActive: true}
	repo.addUser(&auth.User{
		ID:           "u2",
		Email:        "ops@roder.com",
		PasswordHash: hash(t, "Passw0rd"),
		Role:         authz.RoleOperator,
		IsActive:     true,
	})
	service := auth.NewService(repo)

	_, tenant, err := service.Login(context.Background(), "ops@roder.com", "Passw0rd")
	require.NoError(t, err)
	require.NotNil(t, tenant)
	require.Equal(t, "t2", tenant.ID)
}

func TestResolveTenantByEmailTriesDotlessDomain(t *testing.T) {
	repo := newStubRepo()
	// Legacy record: domain stored without dots.
	repo.byDomain["ecosfercomtr"] = &auth.Tenant{ID: "t1", Name: "Ecosfer", IsActive: true}
	service := auth.NewService(repo)

	tenant, err := service.ResolveTenantByEmail(context.Background(), "ops@ecosfer.com.tr")
	require.NoError(t, err)
	require.Equal(t, "t1", tenant.ID)
}

func TestRegisterAssignsOperatorRole(t *testing.T) {
	repo := newStubRepo()
	repo.tenants["t1"] = &auth.Tenant{ID: "t1", Name: "Ecosfer", IsActive: true}
	service := auth.NewService(repo)

	user, err := service.Register(context.Background(), auth.RegisterInput{
		Name:            "Ada",
		Email:           "Ada@Ecosfer.com",
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
		TenantID:        "t1",
	})
	require.NoError(t, err)
	require.Equal(t, authz.RoleOperator, user.Role)
	require.Equal(t, "t1", user.TenantID)
	require.Equal(t, "ada@ecosfer.com", user.Email)
	require.True(t, user.IsActive)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	repo := newStubRepo()
	repo.tenants["t1"] = &auth.Tenant{ID: "t1", IsActive: true}
	service := auth.NewService(repo)

	_, err := service.Register(context.Background(), auth.RegisterInput{
		Name:            "Ada",
		Email:           "ada@ecosfer.com",
		Password:        "alllowercase1",
		ConfirmPassword: "alllowercase1",
		TenantID:        "t1",
	})
	require.ErrorIs(t, err, auth.ErrWeakPassword)
}

func TestRegisterRejectsInactiveTenant(t *testing.T) {
	repo := newStubRepo()
	repo.tenants["t1"] = &auth.Tenant{ID: "t1", IsActive: false}
	service := auth.NewService(repo)

	_, err := service.Register(context.Background(), auth.RegisterInput{
		Name:            "Ada",
		Email:           "ada@ecosfer.com",
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
		TenantID:        "t1",
	})
	require.ErrorIs(t, err, auth.ErrInvalidTenant)
}

func TestChangePassword(t *testing.T) {
	repo := newStubRepo()
	repo.addUser(&auth.User{
		ID:           "u1",
		Email:        "ops@ecosfer.com",
		PasswordHash: hash(t, "OldPass1"),
		IsActive:     true,
	})
	service := auth.NewService(repo)

	err := service.ChangePassword(context.Background(), "u1", "OldPass1", "NewPass2")
	require.NoError(t, err)
	require.NotEmpty(t, repo.updatedHash)

	err = service.ChangePassword(context.Background(), "u1", "wrong", "NewPass2")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
