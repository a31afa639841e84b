// Package supplier manages the tenant's supplier directory, the
// invitation flow and the supplier portal profile.
package supplier

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

// Invitation errors.
var (
	ErrNoEmail = errors.New("supplier: supplier has no e-mail address")
)

// InviteSender delivers invitation mail. Failures after the invitation
// record is written are tolerated; the supplier can be re-invited.
type InviteSender interface {
	SendInvitation(ctx context.Context, to, name, inviteURL string) error
}

// Input carries supplier form fields.
type Input struct {
	Name          string `json:"name" validate:"required,min=1"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	TaxNumber     string `json:"taxNumber"`
	TaxOffice     string `json:"taxOffice"`
	ContactPerson string `json:"contactPerson"`
	CountryID     string `json:"countryId"`
	CompanyID     string `json:"companyId"`
}

func (in Input) data() datastore.Data {
	return datastore.Data{
		"name":           in.Name,
		"email":          nullable(in.Email),
		"phone":          nullable(in.Phone),
		"address":        nullable(in.Address),
		"tax_number":     nullable(in.TaxNumber),
		"tax_office":     nullable(in.TaxOffice),
		"contact_person": nullable(in.ContactPerson),
		"country_id":     nullable(in.CountryID),
		"company_id":     nullable(in.CompanyID),
	}
}

// ProfileInput carries the fields a supplier may edit about itself.
type ProfileInput struct {
	Name          string `json:"name"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	TaxNumber     string `json:"taxNumber"`
	TaxOffice     string `json:"taxOffice"`
	ContactPerson string `json:"contactPerson"`
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Service implements supplier directory and portal operations.
type Service struct {
	logger  *slog.Logger
	mail    InviteSender
	baseURL string
}

// NewService builds Service instance. baseURL is the public origin used
// in invitation links.
func NewService(logger *slog.Logger, mail InviteSender, baseURL string) *Service {
	return &Service{logger: logger, mail: mail, baseURL: baseURL}
}

// List returns the tenant's suppliers ordered by name.
func (s *Service) List(ctx context.Context, scope *tenant.Scope) ([]datastore.Record, error) {
	return scope.Store.FindMany(ctx, datastore.KindSupplier, datastore.FindArgs{
		OrderBy: "name asc",
	})
}

// Get returns one supplier with its surveys.
func (s *Service) Get(ctx context.Context, scope *tenant.Scope, id string) (datastore.Record, error) {
	record, err := scope.Store.FindUnique(ctx, datastore.KindSupplier, datastore.Where{"id": id})
	if err != nil {
		return nil, err
	}
	surveys, err := scope.Store.FindMany(ctx, datastore.KindSupplierSurvey, datastore.FindArgs{
		Where:   datastore.Where{"supplier_id": id},
		OrderBy: "created_at desc",
	})
	if err != nil {
		return nil, err
	}
	record["supplierSurveys"] = surveys
	return record, nil
}

// Create inserts a supplier.
func (s *Service) Create(ctx context.Context, scope *tenant.Scope, input Input) (datastore.Record, error) {
	data := input.data()
	data["id"] = uuid.NewString()
	data["invitation_status"] = "NOT_INVITED"
	return scope.Store.Create(ctx, datastore.KindSupplier, data)
}

// Update replaces the supplier's editable fields.
func (s *Service) Update(ctx context.Context, scope *tenant.Scope, id string, input Input) (datastore.Record, error) {
	return scope.Store.Update(ctx, datastore.KindSupplier, datastore.Where{"id": id}, input.data())
}

// Delete removes a supplier.
func (s *Service) Delete(ctx context.Context, scope *tenant.Scope, id string) error {
	return scope.Store.Delete(ctx, datastore.KindSupplier, datastore.Where{"id": id})
}

// Invite marks the supplier invited and mails a registration link. The
// invitation record is authoritative; mail failure is logged and
// swallowed so the supplier can be re-invited.
func (s *Service) Invite(ctx context.Context, scope *tenant.Scope, id string) error {
	record, err := scope.Store.FindUnique(ctx, datastore.KindSupplier, datastore.Where{"id": id})
	if err != nil {
		return err
	}
	email, _ := record["email"].(string)
	if email == "" {
		return ErrNoEmail
	}

	token := newInviteToken()
	_, err = scope.Store.Update(ctx, datastore.KindSupplier, datastore.Where{"id": id}, datastore.Data{
		"invitation_status": "INVITED",
		"invited_at":        time.Now().UTC(),
		"invitation_token":  token,
	})
	if err != nil {
		return err
	}

	name, _ := record["name"].(string)
	inviteURL := s.baseURL + "/supplier/register?token=" + token
	if s.mail != nil {
		if err := s.mail.SendInvitation(ctx, email, name, inviteURL); err != nil {
			s.logger.Warn("invitation mail", slog.String("supplier_id", id), slog.Any("error", err))
		}
	}
	return nil
}

func newInviteToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// Profile returns the supplier record linked to the calling user. Used
// by the supplier portal, where the session role is SUPPLIER.
func (s *Service) Profile(ctx context.Context, scope *tenant.Scope) (datastore.Record, error) {
	return scope.Store.FindFirst(ctx, datastore.KindSupplier, datastore.FindArgs{
		Where: datastore.Where{"user_id": scope.Claims.UserID},
	})
}

// UpdateProfile lets the linked supplier edit its own contact fields.
// Empty fields keep their stored values.
func (s *Service) UpdateProfile(ctx context.Context, scope *tenant.Scope, input ProfileInput) (datastore.Record, error) {
	record, err := s.Profile(ctx, scope)
	if err != nil {
		return nil, err
	}
	data := datastore.Data{}
	set := func(column, value string) {
		if value != "" {
			data[column] = value
		}
	}
	set("name", input.Name)
	set("email", input.Email)
	set("phone", input.Phone)
	set("address", input.Address)
	set("tax_number", input.TaxNumber)
	set("tax_office", input.TaxOffice)
	set("contact_person", input.ContactPerson)
	if len(data) == 0 {
		return record, nil
	}
	id, _ := record["id"].(string)
	return scope.Store.Update(ctx, datastore.KindSupplier, datastore.Where{"id": id}, data)
}

// SurveyInput carries embedded-emissions survey fields.
type SurveyInput struct {
	SupplierID                string   `json:"supplierId" validate:"required,min=1"`
	SupplierGoodID            string   `json:"supplierGoodId"`
	ReportingPeriodStart      string   `json:"reportingPeriodStart"`
	ReportingPeriodEnd        string   `json:"reportingPeriodEnd"`
	SpecificEmbeddedEmissions *float64 `json:"specificEmbeddedEmissions"`
	DirectEmissions           *float64 `json:"directEmissions"`
	IndirectEmissions         *float64 `json:"indirectEmissions"`
	ProductionVolume          *float64 `json:"productionVolume"`
	ElectricityConsumption    *float64 `json:"electricityConsumption"`
	HeatConsumption           *float64 `json:"heatConsumption"`
	EmissionFactorSource      string   `json:"emissionFactorSource"`
	MonitoringMethodology     string   `json:"monitoringMethodology"`
	Notes                     string   `json:"notes"`
}

// ListSurveys returns surveys, optionally narrowed to one supplier. The
// supplier must belong to the tenant.
func (s *Service) ListSurveys(ctx context.Context, scope *tenant.Scope, supplierID string) ([]datastore.Record, error) {
	if supplierID != "" {
		if _, err := scope.Store.FindUnique(ctx, datastore.KindSupplier, datastore.Where{"id": supplierID}); err != nil {
			return nil, err
		}
		return scope.Store.FindMany(ctx, datastore.KindSupplierSurvey, datastore.FindArgs{
			Where:   datastore.Where{"supplier_id": supplierID},
			OrderBy: "created_at desc",
		})
	}
	suppliers, err := s.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(suppliers))
	for _, record := range suppliers {
		if id, ok := record["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return scope.Store.FindMany(ctx, datastore.KindSupplierSurvey, datastore.FindArgs{
		Where:   datastore.Where{"supplier_id": ids},
		OrderBy: "created_at desc",
	})
}

// CreateSurvey inserts a survey under an owned supplier.
func (s *Service) CreateSurvey(ctx context.Context, scope *tenant.Scope, input SurveyInput) (datastore.Record, error) {
	if _, err := scope.Store.FindUnique(ctx, datastore.KindSupplier, datastore.Where{"id": input.SupplierID}); err != nil {
		return nil, err
	}
	data := datastore.Data{
		"id":                          uuid.NewString(),
		"supplier_id":                 input.SupplierID,
		"supplier_good_id":            nullable(input.SupplierGoodID),
		"reporting_period_start":      nullable(input.ReportingPeriodStart),
		"reporting_period_end":        nullable(input.ReportingPeriodEnd),
		"specific_embedded_emissions": numeric(input.SpecificEmbeddedEmissions),
		"direct_emissions":            numeric(input.DirectEmissions),
		"indirect_emissions":          numeric(input.IndirectEmissions),
		"production_volume":           numeric(input.ProductionVolume),
		"electricity_consumption":     numeric(input.ElectricityConsumption),
		"heat_consumption":            numeric(input.HeatConsumption),
		"emission_factor_source":      nullable(input.EmissionFactorSource),
		"monitoring_methodology":      nullable(input.MonitoringMethodology),
		"notes":                       nullable(input.Notes),
		"status":                      "DRAFT",
	}
	return scope.Store.Create(ctx, datastore.KindSupplierSurvey, data)
}

// SubmitSurvey marks a survey submitted. The survey's supplier must be
// owned by the tenant.
func (s *Service) SubmitSurvey(ctx context.Context, scope *tenant.Scope, id string) error {
	if err := s.requireSurveyOwned(ctx, scope, id); err != nil {
		return err
	}
	_, err := scope.Store.Update(ctx, datastore.KindSupplierSurvey, datastore.Where{"id": id}, datastore.Data{
		"status":       "SUBMITTED",
		"submitted_at": time.Now().UTC(),
	})
	return err
}

// DeleteSurvey removes an owned survey.
func (s *Service) DeleteSurvey(ctx context.Context, scope *tenant.Scope, id string) error {
	if err := s.requireSurveyOwned(ctx, scope, id); err != nil {
		return err
	}
	return scope.Store.Delete(ctx, datastore.KindSupplierSurvey, datastore.Where{"id": id})
}

func (s *Service) requireSurveyOwned(ctx context.Context, scope *tenant.Scope, id string) error {
	survey, err := scope.Store.FindUnique(ctx, datastore.KindSupplierSurvey, datastore.Where{"id": id})
	if err != nil {
		return err
	}
	supplierID, _ := survey["supplier_id"].(string)
	_, err = scope.Store.FindUnique(ctx, datastore.KindSupplier, datastore.Where{"id": supplierID})
	if err != nil {
		return datastore.ErrNotFound
	}
	return nil
}

func numeric(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
