package users

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/cbamflow/cbamflow/internal/authz"
)

const bcryptCost = 12

// Management errors surfaced to handlers.
var (
	ErrTenantMismatch = errors.New("users: user belongs to another tenant")
	ErrSelfDelete     = errors.New("users: cannot delete own account")
	ErrUnknownRole    = errors.New("users: unknown role")
)

// Service implements tenant-scoped user administration. Users are a
// global table, so tenant ownership is verified here on every write.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the actor's tenant users.
func (s *Service) List(ctx context.Context, actor Actor) ([]Account, error) {
	return s.repo.ListByTenant(ctx, actor.TenantID)
}

// CreateInput carries admin-created account fields.
type CreateInput struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

// Create adds a user to the actor's tenant. Admins cannot grant a role
// above their own.
func (s *Service) Create(ctx context.Context, actor Actor, input CreateInput) (*Account, error) {
	role, err := authz.ParseRole(input.Role)
	if err != nil {
		return nil, ErrUnknownRole
	}
	if !authz.HasMinimumRole(actor.Role, role) {
		return nil, ErrUnknownRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &Account{
		Name:     strings.TrimSpace(input.Name),
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Role:     role,
		TenantID: actor.TenantID,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, account, string(hash)); err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateInput carries partial account updates.
type UpdateInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// Update modifies a user in the actor's tenant.
func (s *Service) Update(ctx context.Context, actor Actor, userID string, input UpdateInput) error {
	if err := s.requireSameTenant(ctx, actor, userID); err != nil {
		return err
	}

	changes := Changes{Name: input.Name, IsActive: input.IsActive}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		changes.Email = &email
	}
	if input.Role != nil {
		role, err := authz.ParseRole(*input.Role)
		if err != nil {
			return ErrUnknownRole
		}
		if !authz.HasMinimumRole(actor.Role, role) {
			return ErrUnknownRole
		}
		changes.Role = &role
	}
	return s.repo.Update(ctx, userID, changes)
}

// Delete removes a user from the actor's tenant. Self-deletion is
// rejected so a tenant cannot lose its last administrator by accident.
func (s *Service) Delete(ctx context.Context, actor Actor, userID string) error {
	if userID == actor.UserID {
		return ErrSelfDelete
	}
	if err := s.requireSameTenant(ctx, actor, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID)
}

// Tenant returns the actor's organisation profile.
func (s *Service) Tenant(ctx context.Context, actor Actor) (*TenantProfile, error) {
	return s.repo.GetTenant(ctx, actor.TenantID)
}

// RenameTenant updates the organisation display name.
func (s *Service) RenameTenant(ctx context.Context, actor Actor, name string) error {
	return s.repo.RenameTenant(ctx, actor.TenantID, strings.TrimSpace(name))
}

func (s *Service) requireSameTenant(ctx context.Context, actor Actor, userID string) error {
	target, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	// SUPER_ADMIN administers across tenants.
	if actor.Role == authz.RoleSuperAdmin {
		return nil
	}
	if target.TenantID != actor.TenantID {
		return ErrTenantMismatch
	}
	return nil
}
