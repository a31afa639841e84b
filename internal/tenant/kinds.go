// Package tenant enforces row-level tenant isolation. It wraps the
// generic datastore client so every operation on a tenant-owned kind is
// scoped to the tenant resolved from the caller's session; callers never
// handle tenant identifiers directly.
package tenant

import "github.com/cbamflow/cbamflow/internal/datastore"

// scopedKinds is the closed set of entity kinds carrying a tenant_id
// column. Kinds outside this set (reference data, tenants, users) pass
// through the proxy unmodified.
var scopedKinds = map[datastore.Kind]struct{}{
	datastore.KindCompany:                       {},
	datastore.KindInstallation:                  {},
	datastore.KindPerson:                        {},
	datastore.KindInstallationData:              {},
	datastore.KindSupplier:                      {},
	datastore.KindReport:                        {},
	datastore.KindReportTemplate:                {},
	datastore.KindReportVerifierCompany:         {},
	datastore.KindReportVerifierRepresentative:  {},
	datastore.KindAnnualDeclaration:             {},
	datastore.KindCbamCertificate:               {},
	datastore.KindMonitoringPlan:                {},
	datastore.KindVerificationDocument:          {},
	datastore.KindAuthorisationApplication:      {},
	datastore.KindOperatorRegistration:          {},
	datastore.KindAccreditedVerifier:            {},
	datastore.KindIndirectCustomsRepresentative: {},
	datastore.KindImporter:                      {},
}

// IsScoped reports whether kind requires tenant isolation.
func IsScoped(kind datastore.Kind) bool {
	_, ok := scopedKinds[kind]
	return ok
}

// ScopedKinds returns the tenant-scoped kind set.
func ScopedKinds() []datastore.Kind {
	kinds := make([]datastore.Kind, 0, len(scopedKinds))
	for kind := range scopedKinds {
		kinds = append(kinds, kind)
	}
	return kinds
}
