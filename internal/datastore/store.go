// Package datastore exposes a generic, kind-addressed data access client
// over PostgreSQL. Callers address records by entity kind with structured
// filter and payload maps; the store is oblivious to tenancy, which is
// layered on top by the tenant package.
package datastore

import (
	"context"
	"errors"
)

// Kind names an entity collection known to the store.
type Kind string

// Tenant scoped kinds.
const (
	KindCompany                       Kind = "company"
	KindInstallation                  Kind = "installation"
	KindPerson                        Kind = "person"
	KindInstallationData              Kind = "installationData"
	KindSupplier                      Kind = "supplier"
	KindReport                        Kind = "report"
	KindReportTemplate                Kind = "reportTemplate"
	KindReportVerifierCompany         Kind = "reportVerifierCompany"
	KindReportVerifierRepresentative  Kind = "reportVerifierRepresentative"
	KindAnnualDeclaration             Kind = "annualDeclaration"
	KindCbamCertificate               Kind = "cbamCertificate"
	KindMonitoringPlan                Kind = "monitoringPlan"
	KindVerificationDocument          Kind = "verificationDocument"
	KindAuthorisationApplication      Kind = "authorisationApplication"
	KindOperatorRegistration          Kind = "operatorRegistration"
	KindAccreditedVerifier            Kind = "accreditedVerifier"
	KindIndirectCustomsRepresentative Kind = "indirectCustomsRepresentative"
	KindImporter                      Kind = "importer"
)

// Child kinds without a tenant column of their own. Isolation flows
// through the parent record (installation data or declaration), which
// callers must verify before writing.
const (
	KindEmission                 Kind = "emission"
	KindFuelBalance              Kind = "fuelBalance"
	KindGhgBalanceByType         Kind = "ghgBalanceByType"
	KindCertificateSurrender     Kind = "certificateSurrender"
	KindFreeAllocationAdjustment Kind = "freeAllocationAdjustment"
	KindSupplierSurvey           Kind = "supplierSurvey"
	KindReportSection            Kind = "reportSection"
	KindReportSectionContent     Kind = "reportSectionContent"
)

// Global kinds, shared across tenants.
const (
	KindTenant    Kind = "tenant"
	KindUser      Kind = "user"
	KindCountry   Kind = "country"
	KindCity      Kind = "city"
	KindDistrict  Kind = "district"
	KindTaxOffice Kind = "taxOffice"
	KindCnCode    Kind = "cnCode"
)

// Where is a conjunction of column predicates. A scalar value means
// equality, a slice means membership and nil means IS NULL.
type Where map[string]any

// Data is a column to value payload for writes.
type Data map[string]any

// Record is a single row keyed by column name.
type Record map[string]any

// FindArgs carries optional filtering for list reads.
type FindArgs struct {
	Where   Where
	OrderBy string
	Limit   int
	Offset  int
}

// AggregateArgs selects which aggregates to compute over a filtered set.
type AggregateArgs struct {
	Where Where
	Sum   []string
	Avg   []string
}

// AggregateResult holds computed aggregates keyed by column.
type AggregateResult struct {
	Count int64
	Sum   map[string]float64
	Avg   map[string]float64
}

// Store errors.
var (
	// ErrNotFound indicates no record matched a point operation.
	ErrNotFound = errors.New("datastore: record not found")
	// ErrUnknownKind indicates the kind is not registered with the store.
	ErrUnknownKind = errors.New("datastore: unknown kind")
	// ErrInvalidField indicates a column name failed validation.
	ErrInvalidField = errors.New("datastore: invalid field name")
)

// Store is the generic operation set every backing client must provide.
// All operations are context aware and may block on I/O.
type Store interface {
	FindMany(ctx context.Context, kind Kind, args FindArgs) ([]Record, error)
	FindFirst(ctx context.Context, kind Kind, args FindArgs) (Record, error)
	FindUnique(ctx context.Context, kind Kind, where Where) (Record, error)
	Create(ctx context.Context, kind Kind, data Data) (Record, error)
	CreateMany(ctx context.Context, kind Kind, data []Data) (int64, error)
	Update(ctx context.Context, kind Kind, where Where, data Data) (Record, error)
	UpdateMany(ctx context.Context, kind Kind, where Where, data Data) (int64, error)
	Delete(ctx context.Context, kind Kind, where Where) error
	DeleteMany(ctx context.Context, kind Kind, where Where) (int64, error)
	Count(ctx context.Context, kind Kind, where Where) (int64, error)
	Aggregate(ctx context.Context, kind Kind, args AggregateArgs) (AggregateResult, error)
}

// Clone returns a shallow copy of w so callers can add predicates without
// mutating the caller-supplied map.
func (w Where) Clone() Where {
	out := make(Where, len(w)+1)
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of d.
func (d Data) Clone() Data {
	out := make(Data, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	return out
}
