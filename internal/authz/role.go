// Package authz implements role based access decisions: the role
// hierarchy, the route access table and the per-role menu visibility.
package authz

import (
	"fmt"
	"strings"
)

// Role is a privilege level assigned to a user. The set is closed and
// owned by the identity layer; this package only compares roles.
type Role string

const (
	RoleSupplier      Role = "SUPPLIER"
	RoleVerifier      Role = "VERIFIER"
	RoleDeclarant     Role = "CBAM_DECLARANT"
	RoleOperator      Role = "OPERATOR"
	RoleCompanyAdmin  Role = "COMPANY_ADMIN"
	RoleSuperAdmin    Role = "SUPER_ADMIN"
)

// roleRank is the explicit privilege order. Higher rank means more
// privileges. Review this table whenever the role set changes; order is
// never inferred from declaration position.
var roleRank = map[Role]int{
	RoleSupplier:     1,
	RoleVerifier:     2,
	RoleDeclarant:    3,
	RoleOperator:     4,
	RoleCompanyAdmin: 5,
	RoleSuperAdmin:   6,
}

// Roles lists every known role in ascending privilege order.
func Roles() []Role {
	return []Role{RoleSupplier, RoleVerifier, RoleDeclarant, RoleOperator, RoleCompanyAdmin, RoleSuperAdmin}
}

// Rank returns the privilege rank of a role. Unknown roles rank below
// every member of the closed set.
func Rank(r Role) int {
	return roleRank[r]
}

// Valid reports whether r is a member of the closed role set.
func Valid(r Role) bool {
	_, ok := roleRank[r]
	return ok
}

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !Valid(r) {
		return "", fmt.Errorf("authz: unknown role %q", s)
	}
	return r, nil
}

// HasMinimumRole reports whether actual carries at least the privileges
// of required. Reflexive: every role satisfies itself.
func HasMinimumRole(actual, required Role) bool {
	return Rank(actual) >= Rank(required)
}
