package users

import (
	"time"

	"github.com/cbamflow/cbamflow/internal/authz"
)

// Account is a user record as seen by tenant administrators. The
// password hash never leaves the repository layer.
type Account struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        authz.Role `json:"role"`
	TenantID    string     `json:"tenantId"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// TenantProfile is the organisation record editable from settings.
type TenantProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Domain   string `json:"domain"`
	IsActive bool   `json:"isActive"`
}

// Actor identifies who performs a management operation.
type Actor struct {
	UserID   string
	TenantID string
	Role     authz.Role
}
