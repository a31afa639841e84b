// Package declaration manages annual CBAM declarations, certificates
// and certificate surrenders.
package declaration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

// Declaration statuses follow the regulatory lifecycle.
const (
	StatusDraft     = "DRAFT"
	StatusSubmitted = "SUBMITTED"
	StatusVerified  = "VERIFIED"
	StatusClosed    = "CLOSED"
)

// Validation errors.
var (
	ErrInvalidStatus       = errors.New("declaration: invalid status")
	ErrInvalidDate         = errors.New("declaration: invalid date")
	ErrInsufficientBalance = errors.New("declaration: surrender exceeds certificate balance")
)

var validStatus = map[string]bool{
	StatusDraft:     true,
	StatusSubmitted: true,
	StatusVerified:  true,
	StatusClosed:    true,
}

// Input carries annual declaration fields.
type Input struct {
	Year  int    `json:"year" validate:"required,min=2023,max=2030"`
	Notes string `json:"notes"`
}

// UpdateInput carries partial declaration updates.
type UpdateInput struct {
	Status         *string `json:"status"`
	Notes          *string `json:"notes"`
	SubmissionDate *string `json:"submissionDate"`
}

// CertificateInput carries CBAM certificate fields.
type CertificateInput struct {
	CertificateNo string   `json:"certificateNo" validate:"required,min=1"`
	IssueDate     string   `json:"issueDate" validate:"required,min=1"`
	ExpiryDate    string   `json:"expiryDate"`
	PricePerTonne *float64 `json:"pricePerTonne"`
	Quantity      int      `json:"quantity" validate:"omitempty,min=1"`
}

// SurrenderInput carries certificate surrender fields.
type SurrenderInput struct {
	CertificateID string `json:"certificateId" validate:"required,min=1"`
	DeclarationID string `json:"declarationId" validate:"required,min=1"`
	Quantity      int    `json:"quantity" validate:"required,min=1"`
	SurrenderDate string `json:"surrenderDate" validate:"required,min=1"`
	Notes         string `json:"notes"`
}

// AdjustmentInput carries free allocation adjustment fields.
type AdjustmentInput struct {
	DeclarationID  string  `json:"declarationId" validate:"required,min=1"`
	AdjustmentType string  `json:"adjustmentType" validate:"required,min=1"`
	Amount         float64 `json:"amount" validate:"required"`
	Description    string  `json:"description"`
}

// Service implements declaration lifecycle operations.
type Service struct{}

// NewService builds Service instance.
func NewService() *Service {
	return &Service{}
}

// List returns the tenant's declarations, newest year first.
func (s *Service) List(ctx context.Context, scope *tenant.Scope) ([]datastore.Record, error) {
	return scope.Store.FindMany(ctx, datastore.KindAnnualDeclaration, datastore.FindArgs{
		OrderBy: "year desc",
	})
}

// Get returns one declaration with its surrenders and adjustments.
func (s *Service) Get(ctx context.Context, scope *tenant.Scope, id string) (datastore.Record, error) {
	record, err := scope.Store.FindUnique(ctx, datastore.KindAnnualDeclaration, datastore.Where{"id": id})
	if err != nil {
		return nil, err
	}
	surrenders, err := scope.Store.FindMany(ctx, datastore.KindCertificateSurrender, datastore.FindArgs{
		Where:   datastore.Where{"declaration_id": id},
		OrderBy: "surrender_date desc",
	})
	if err != nil {
		return nil, err
	}
	adjustments, err := scope.Store.FindMany(ctx, datastore.KindFreeAllocationAdjustment, datastore.FindArgs{
		Where:   datastore.Where{"declaration_id": id},
		OrderBy: "created_at asc",
	})
	if err != nil {
		return nil, err
	}
	record["certificateSurrenders"] = surrenders
	record["freeAllocationAdjustments"] = adjustments
	return record, nil
}

// Create opens a new draft declaration for a reporting year.
func (s *Service) Create(ctx context.Context, scope *tenant.Scope, input Input) (datastore.Record, error) {
	return scope.Store.Create(ctx, datastore.KindAnnualDeclaration, datastore.Data{
		"id":     uuid.NewString(),
		"year":   input.Year,
		"notes":  nullable(input.Notes),
		"status": StatusDraft,
	})
}

// Update applies partial changes to a declaration.
func (s *Service) Update(ctx context.Context, scope *tenant.Scope, id string, input UpdateInput) (datastore.Record, error) {
	data := datastore.Data{}
	if input.Status != nil {
		if !validStatus[*input.Status] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *input.Status)
		}
		data["status"] = *input.Status
	}
	if input.Notes != nil {
		data["notes"] = nullable(*input.Notes)
	}
	if input.SubmissionDate != nil {
		date, err := parseDate(*input.SubmissionDate)
		if err != nil {
			return nil, err
		}
		data["submission_date"] = date
	}
	if len(data) == 0 {
		return scope.Store.FindUnique(ctx, datastore.KindAnnualDeclaration, datastore.Where{"id": id})
	}
	return scope.Store.Update(ctx, datastore.KindAnnualDeclaration, datastore.Where{"id": id}, data)
}

// Submit transitions a declaration to SUBMITTED and stamps the date.
func (s *Service) Submit(ctx context.Context, scope *tenant.Scope, id string) (datastore.Record, error) {
	return scope.Store.Update(ctx, datastore.KindAnnualDeclaration, datastore.Where{"id": id}, datastore.Data{
		"status":          StatusSubmitted,
		"submission_date": time.Now().UTC(),
	})
}

// Delete removes a declaration.
func (s *Service) Delete(ctx context.Context, scope *tenant.Scope, id string) error {
	return scope.Store.Delete(ctx, datastore.KindAnnualDeclaration, datastore.Where{"id": id})
}

// ListCertificates returns the tenant's certificates, newest first.
func (s *Service) ListCertificates(ctx context.Context, scope *tenant.Scope) ([]datastore.Record, error) {
	return scope.Store.FindMany(ctx, datastore.KindCbamCertificate, datastore.FindArgs{
		OrderBy: "issue_date desc",
	})
}

// CreateCertificate registers a purchased certificate.
func (s *Service) CreateCertificate(ctx context.Context, scope *tenant.Scope, input CertificateInput) (datastore.Record, error) {
	issue, err := parseDate(input.IssueDate)
	if err != nil {
		return nil, err
	}
	expiry, err := parseDate(input.ExpiryDate)
	if err != nil {
		return nil, err
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	return scope.Store.Create(ctx, datastore.KindCbamCertificate, datastore.Data{
		"id":              uuid.NewString(),
		"certificate_no":  input.CertificateNo,
		"issue_date":      issue,
		"expiry_date":     expiry,
		"price_per_tonne": numeric(input.PricePerTonne),
		"quantity":        quantity,
	})
}

// DeleteCertificate removes a certificate.
func (s *Service) DeleteCertificate(ctx context.Context, scope *tenant.Scope, id string) error {
	return scope.Store.Delete(ctx, datastore.KindCbamCertificate, datastore.Where{"id": id})
}

// CertificateBalance is the tenant's certificate position.
type CertificateBalance struct {
	Certificates int64   `json:"certificates"`
	Held         float64 `json:"held"`
	Surrendered  float64 `json:"surrendered"`
	Available    float64 `json:"available"`
}

// Balance computes held versus surrendered certificate quantities.
func (s *Service) Balance(ctx context.Context, scope *tenant.Scope) (CertificateBalance, error) {
	held, err := scope.Store.Aggregate(ctx, datastore.KindCbamCertificate, datastore.AggregateArgs{
		Sum: []string{"quantity"},
	})
	if err != nil {
		return CertificateBalance{}, err
	}
	certIDs, err := s.ownedCertificateIDs(ctx, scope)
	if err != nil {
		return CertificateBalance{}, err
	}
	var surrendered float64
	if len(certIDs) > 0 {
		result, err := scope.Store.Aggregate(ctx, datastore.KindCertificateSurrender, datastore.AggregateArgs{
			Where: datastore.Where{"certificate_id": certIDs},
			Sum:   []string{"quantity"},
		})
		if err != nil {
			return CertificateBalance{}, err
		}
		surrendered = result.Sum["quantity"]
	}
	balance := CertificateBalance{
		Certificates: held.Count,
		Held:         held.Sum["quantity"],
		Surrendered:  surrendered,
	}
	balance.Available = balance.Held - balance.Surrendered
	return balance, nil
}

func (s *Service) ownedCertificateIDs(ctx context.Context, scope *tenant.Scope) ([]string, error) {
	certs, err := scope.Store.FindMany(ctx, datastore.KindCbamCertificate, datastore.FindArgs{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(certs))
	for _, record := range certs {
		if id, ok := record["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// CreateSurrender surrenders certificate quantity against a declaration.
// Both referenced records must belong to the tenant, and the surrendered
// quantity may not exceed the certificate's remaining balance.
func (s *Service) CreateSurrender(ctx context.Context, scope *tenant.Scope, input SurrenderInput) (datastore.Record, error) {
	cert, err := scope.Store.FindUnique(ctx, datastore.KindCbamCertificate, datastore.Where{"id": input.CertificateID})
	if err != nil {
		return nil, err
	}
	if _, err := scope.Store.FindUnique(ctx, datastore.KindAnnualDeclaration, datastore.Where{"id": input.DeclarationID}); err != nil {
		return nil, err
	}
	date, err := parseDate(input.SurrenderDate)
	if err != nil {
		return nil, err
	}

	used, err := scope.Store.Aggregate(ctx, datastore.KindCertificateSurrender, datastore.AggregateArgs{
		Where: datastore.Where{"certificate_id": input.CertificateID},
		Sum:   []string{"quantity"},
	})
	if err != nil {
		return nil, err
	}
	if float64(input.Quantity)+used.Sum["quantity"] > asFloat(cert["quantity"]) {
		return nil, ErrInsufficientBalance
	}

	return scope.Store.Create(ctx, datastore.KindCertificateSurrender, datastore.Data{
		"id":             uuid.NewString(),
		"certificate_id": input.CertificateID,
		"declaration_id": input.DeclarationID,
		"quantity":       float64(input.Quantity),
		"surrender_date": date,
		"notes":          nullable(input.Notes),
	})
}

// DeleteSurrender removes a surrender after proving the referenced
// declaration belongs to the tenant.
func (s *Service) DeleteSurrender(ctx context.Context, scope *tenant.Scope, id string) error {
	surrender, err := scope.Store.FindUnique(ctx, datastore.KindCertificateSurrender, datastore.Where{"id": id})
	if err != nil {
		return err
	}
	declarationID, _ := surrender["declaration_id"].(string)
	if _, err := scope.Store.FindUnique(ctx, datastore.KindAnnualDeclaration, datastore.Where{"id": declarationID}); err != nil {
		return datastore.ErrNotFound
	}
	return scope.Store.Delete(ctx, datastore.KindCertificateSurrender, datastore.Where{"id": id})
}

// CreateAdjustment records a free allocation adjustment on an owned
// declaration.
func (s *Service) CreateAdjustment(ctx context.Context, scope *tenant.Scope, input AdjustmentInput) (datastore.Record, error) {
	if _, err := scope.Store.FindUnique(ctx, datastore.KindAnnualDeclaration, datastore.Where{"id": input.DeclarationID}); err != nil {
		return nil, err
	}
	return scope.Store.Create(ctx, datastore.KindFreeAllocationAdjustment, datastore.Data{
		"id":              uuid.NewString(),
		"declaration_id":  input.DeclarationID,
		"adjustment_type": input.AdjustmentType,
		"amount":          input.Amount,
		"description":     nullable(input.Description),
	})
}

// DeleteAdjustment removes an adjustment on an owned declaration.
func (s *Service) DeleteAdjustment(ctx context.Context, scope *tenant.Scope, id string) error {
	adjustment, err := scope.Store.FindUnique(ctx, datastore.KindFreeAllocationAdjustment, datastore.Where{"id": id})
	if err != nil {
		return err
	}
	declarationID, _ := adjustment["declaration_id"].(string)
	if _, err := scope.Store.FindUnique(ctx, datastore.KindAnnualDeclaration, datastore.Where{"id": declarationID}); err != nil {
		return datastore.ErrNotFound
	}
	return scope.Store.Delete(ctx, datastore.KindFreeAllocationAdjustment, datastore.Where{"id": id})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func numeric(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func parseDate(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
