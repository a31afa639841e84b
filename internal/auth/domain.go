package auth

import (
	"time"

	"github.com/cbamflow/cbamflow/internal/authz"
)

// User represents an account. Users are global records carrying a tenant
// assignment; they are managed outside the tenant-scoped proxy.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         authz.Role
	TenantID     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Tenant is an isolated customer organization.
type Tenant struct {
	ID       string
	Name     string
	Slug     string
	Domain   string
	IsActive bool
}
