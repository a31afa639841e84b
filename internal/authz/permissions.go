package authz

// Platform permissions carried in the session next to the role. The
// route table and role hierarchy drive page access; permissions gate
// individual actions inside a page.
const (
	PermUsersView    = "users.view"
	PermUsersEdit    = "users.edit"
	PermReportsView  = "reports.view"
	PermReportsEdit  = "reports.edit"
	PermDeclView     = "declarations.view"
	PermDeclSubmit   = "declarations.submit"
	PermSupplierView = "suppliers.view"
)

// PermissionsForRole expands a role into its default permission grants.
func PermissionsForRole(role Role) []string {
	var perms []string
	if HasMinimumRole(role, RoleVerifier) {
		perms = append(perms, PermReportsView)
	}
	if HasMinimumRole(role, RoleDeclarant) {
		perms = append(perms, PermDeclView, PermDeclSubmit)
	}
	if HasMinimumRole(role, RoleOperator) {
		perms = append(perms, PermReportsEdit, PermSupplierView)
	}
	if HasMinimumRole(role, RoleCompanyAdmin) {
		perms = append(perms, PermUsersView, PermUsersEdit)
	}
	return perms
}
