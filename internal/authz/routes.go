package authz

import (
	"sort"
	"strings"
)

// routeAccess maps route prefixes to the minimum role required to enter
// them. Matching is longest-prefix. Paths matching no entry are allowed:
// authorization is a denylist over sensitive sub-trees, so any new
// sensitive route must be added here explicitly.
var routeAccess = map[string]Role{
	"/dashboard/settings/users":      RoleCompanyAdmin,
	"/dashboard/settings":            RoleOperator,
	"/dashboard/suppliers":           RoleOperator,
	"/dashboard/ai-analysis":         RoleOperator,
	"/dashboard/cbam-reference-data": RoleOperator,
	"/dashboard/declarations":        RoleDeclarant,
	"/dashboard/verification":        RoleVerifier,
	"/dashboard":                     RoleSupplier,
}

// routesByLength caches the prefixes sorted longest first so lookups pick
// the most specific rule.
var routesByLength = func() []string {
	keys := make([]string, 0, len(routeAccess))
	for k := range routeAccess {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys
}()

// CanAccessRoute reports whether role may enter path. SUPER_ADMIN may
// enter everything.
func CanAccessRoute(role Role, path string) bool {
	if role == RoleSuperAdmin {
		return true
	}
	for _, prefix := range routesByLength {
		if strings.HasPrefix(path, prefix) {
			return HasMinimumRole(role, routeAccess[prefix])
		}
	}
	return true
}
