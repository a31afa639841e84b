package declaration

import (
	"context"

	"github.com/google/uuid"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

// PlanInput carries monitoring plan fields.
type PlanInput struct {
	Name        string `json:"name" validate:"required,min=1"`
	Version     string `json:"version"`
	ValidFrom   string `json:"validFrom"`
	ValidTo     string `json:"validTo"`
	Description string `json:"description"`
}

// PlanUpdate carries partial monitoring plan updates.
type PlanUpdate struct {
	Name        *string `json:"name"`
	Version     *string `json:"version"`
	Status      *string `json:"status"`
	ValidFrom   *string `json:"validFrom"`
	ValidTo     *string `json:"validTo"`
	Description *string `json:"description"`
}

// AuthorisationInput carries authorisation application fields.
type AuthorisationInput struct {
	ApplicantName string `json:"applicantName" validate:"required,min=1"`
	ApplicantType string `json:"applicantType"`
	Notes         string `json:"notes"`
}

// AuthorisationUpdate carries partial authorisation updates.
type AuthorisationUpdate struct {
	Status       *string `json:"status"`
	ApprovalDate *string `json:"approvalDate"`
	Notes        *string `json:"notes"`
}

// ListPlans returns the tenant's monitoring plans, newest first.
func (s *Service) ListPlans(ctx context.Context, scope *tenant.Scope) ([]datastore.Record, error) {
	return scope.Store.FindMany(ctx, datastore.KindMonitoringPlan, datastore.FindArgs{
		OrderBy: "created_at desc",
	})
}

// CreatePlan inserts a monitoring plan.
func (s *Service) CreatePlan(ctx context.Context, scope *tenant.Scope, input PlanInput) (datastore.Record, error) {
	from, err := parseDate(input.ValidFrom)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(input.ValidTo)
	if err != nil {
		return nil, err
	}
	return scope.Store.Create(ctx, datastore.KindMonitoringPlan, datastore.Data{
		"id":          uuid.NewString(),
		"name":        input.Name,
		"version":     nullable(input.Version),
		"valid_from":  from,
		"valid_to":    to,
		"description": nullable(input.Description),
	})
}

// UpdatePlan applies partial changes to a monitoring plan.
func (s *Service) UpdatePlan(ctx context.Context, scope *tenant.Scope, id string, input PlanUpdate) (datastore.Record, error) {
	data := datastore.Data{}
	if input.Name != nil {
		data["name"] = *input.Name
	}
	if input.Version != nil {
		data["version"] = nullable(*input.Version)
	}
	if input.Status != nil {
		data["status"] = *input.Status
	}
	if input.Description != nil {
		data["description"] = nullable(*input.Description)
	}
	if input.ValidFrom != nil {
		from, err := parseDate(*input.ValidFrom)
		if err != nil {
			return nil, err
		}
		data["valid_from"] = from
	}
	if input.ValidTo != nil {
		to, err := parseDate(*input.ValidTo)
		if err != nil {
			return nil, err
		}
		data["valid_to"] = to
	}
	if len(data) == 0 {
		return scope.Store.FindUnique(ctx, datastore.KindMonitoringPlan, datastore.Where{"id": id})
	}
	return scope.Store.Update(ctx, datastore.KindMonitoringPlan, datastore.Where{"id": id}, data)
}

// DeletePlan removes a monitoring plan.
func (s *Service) DeletePlan(ctx context.Context, scope *tenant.Scope, id string) error {
	return scope.Store.Delete(ctx, datastore.KindMonitoringPlan, datastore.Where{"id": id})
}

// ListAuthorisations returns authorisation applications, newest first.
func (s *Service) ListAuthorisations(ctx context.Context, scope *tenant.Scope) ([]datastore.Record, error) {
	return scope.Store.FindMany(ctx, datastore.KindAuthorisationApplication, datastore.FindArgs{
		OrderBy: "created_at desc",
	})
}

// CreateAuthorisation inserts an authorisation application.
func (s *Service) CreateAuthorisation(ctx context.Context, scope *tenant.Scope, input AuthorisationInput) (datastore.Record, error) {
	return scope.Store.Create(ctx, datastore.KindAuthorisationApplication, datastore.Data{
		"id":             uuid.NewString(),
		"applicant_name": input.ApplicantName,
		"applicant_type": nullable(input.ApplicantType),
		"notes":          nullable(input.Notes),
	})
}

// UpdateAuthorisation applies partial changes to an application.
func (s *Service) UpdateAuthorisation(ctx context.Context, scope *tenant.Scope, id string, input AuthorisationUpdate) (datastore.Record, error) {
	data := datastore.Data{}
	if input.Status != nil {
		data["status"] = *input.Status
	}
	if input.Notes != nil {
		data["notes"] = nullable(*input.Notes)
	}
	if input.ApprovalDate != nil {
		date, err := parseDate(*input.ApprovalDate)
		if err != nil {
			return nil, err
		}
		data["approval_date"] = date
	}
	if len(data) == 0 {
		return scope.Store.FindUnique(ctx, datastore.KindAuthorisationApplication, datastore.Where{"id": id})
	}
	return scope.Store.Update(ctx, datastore.KindAuthorisationApplication, datastore.Where{"id": id}, data)
}

// DeleteAuthorisation removes an authorisation application.
func (s *Service) DeleteAuthorisation(ctx context.Context, scope *tenant.Scope, id string) error {
	return scope.Store.Delete(ctx, datastore.KindAuthorisationApplication, datastore.Where{"id": id})
}
