package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/shared"
)

const bcryptCost = 12

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Login validates credentials and resolves the user's tenant. The tenant
// on the user record wins; users without an assignment fall back to
// their e-mail domain. A user that cannot be bound to an active tenant
// still logs in with an empty tenant claim, which the tenant resolver
// rejects on any data access.
func (s *Service) Login(ctx context.Context, email, password string) (*User, *Tenant, error) {
	user, err := s.repo.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}

	tenant, err := s.resolveTenant(ctx, user)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, nil, err
	}
	return user, tenant, nil
}

func (s *Service) resolveTenant(ctx context.Context, user *User) (*Tenant, error) {
	if user.TenantID != "" {
		return s.repo.FindTenantByID(ctx, user.TenantID)
	}
	return s.ResolveTenantByEmail(ctx, user.Email)
}

// RegisterInput carries self-registration fields.
type RegisterInput struct {
	Name            string `json:"name" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	TenantID        string `json:"tenantId" validate:"required"`
}

// Registration errors surfaced to the form layer.
var (
	ErrWeakPassword  = errors.New("auth: password needs an uppercase letter and a digit")
	ErrInvalidTenant = errors.New("auth: invalid tenant selection")
)

// Register creates a self-service account. New registrations always get
// the OPERATOR role; privileged roles are assigned by an admin later.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if !passwordStrongEnough(input.Password) {
		return nil, ErrWeakPassword
	}

	tenant, err := s.repo.FindTenantByID(ctx, input.TenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidTenant
		}
		return nil, err
	}
	if !tenant.IsActive {
		return nil, ErrInvalidTenant
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: string(hash),
		Role:         authz.RoleOperator,
		TenantID:     tenant.ID,
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if !passwordStrongEnough(next) {
		return ErrWeakPassword
	}
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func passwordStrongEnough(password string) bool {
	var upper, digit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && digit
}
