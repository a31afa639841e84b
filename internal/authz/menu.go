package authz

// Menu describes which navigation areas are visible for a role. One flag
// per feature area; the sidebar renders whatever is true.
type Menu struct {
	ShowCompanies           bool `json:"showCompanies"`
	ShowInstallations       bool `json:"showInstallations"`
	ShowInstallationData    bool `json:"showInstallationData"`
	ShowEmissions           bool `json:"showEmissions"`
	ShowProductionProcesses bool `json:"showProductionProcesses"`
	ShowReports             bool `json:"showReports"`
	ShowDeclarations        bool `json:"showDeclarations"`
	ShowVerification        bool `json:"showVerification"`
	ShowSuppliers           bool `json:"showSuppliers"`
	ShowAiAnalysis          bool `json:"showAiAnalysis"`
	ShowCbamReferenceData   bool `json:"showCbamReferenceData"`
	ShowSettings            bool `json:"showSettings"`
	ShowUserManagement      bool `json:"showUserManagement"`
	ShowSupplierPortal      bool `json:"showSupplierPortal"`
}

// MenuForRole derives menu visibility from the role hierarchy. Suppliers
// only see their portal; organization management starts at OPERATOR and
// user management at COMPANY_ADMIN.
func MenuForRole(role Role) Menu {
	isAdmin := HasMinimumRole(role, RoleCompanyAdmin)
	isOperator := HasMinimumRole(role, RoleOperator)
	isDeclarant := HasMinimumRole(role, RoleDeclarant)
	isSupplier := role == RoleSupplier

	return Menu{
		ShowCompanies:           isOperator,
		ShowInstallations:       isOperator,
		ShowInstallationData:    isOperator,
		ShowEmissions:           isOperator,
		ShowProductionProcesses: isOperator,
		ShowReports:             isOperator,
		ShowDeclarations:        isDeclarant || isOperator,
		ShowVerification:        isOperator,
		ShowSuppliers:           isOperator,
		ShowAiAnalysis:          isOperator,
		ShowCbamReferenceData:   isOperator,
		ShowSettings:            isOperator,
		ShowUserManagement:      isAdmin,
		ShowSupplierPortal:      isSupplier,
	}
}
