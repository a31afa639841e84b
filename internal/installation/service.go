// Package installation manages production installations and their
// reporting-period data records.
package installation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

// ErrInvalidDate indicates a date field that could not be parsed.
var ErrInvalidDate = errors.New("installation: invalid date")

// Input carries installation form fields.
type Input struct {
	Name       string `json:"name" validate:"required,min=1,max=1024"`
	CompanyID  string `json:"companyId" validate:"required,min=1"`
	Address    string `json:"address" validate:"omitempty,max=1024"`
	PostCode   string `json:"postCode"`
	PoBox      string `json:"poBox"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	Latitude   string `json:"latitude"`
	Longitude  string `json:"longitude"`
	Unlocode   string `json:"unlocode"`
	CountryID  string `json:"countryId"`
	CityID     string `json:"cityId"`
	DistrictID string `json:"districtId"`
}

func (in Input) data() datastore.Data {
	return datastore.Data{
		"name":        in.Name,
		"company_id":  in.CompanyID,
		"address":     nullable(in.Address),
		"post_code":   nullable(in.PostCode),
		"po_box":      nullable(in.PoBox),
		"email":       nullable(in.Email),
		"phone":       nullable(in.Phone),
		"latitude":    nullable(in.Latitude),
		"longitude":   nullable(in.Longitude),
		"unlocode":    nullable(in.Unlocode),
		"country_id":  nullable(in.CountryID),
		"city_id":     nullable(in.CityID),
		"district_id": nullable(in.DistrictID),
	}
}

// DataInput carries reporting-period fields for an installation.
type DataInput struct {
	InstallationID                 string `json:"installationId" validate:"required,min=1"`
	StartDate                      string `json:"startDate"`
	EndDate                        string `json:"endDate"`
	RepresentativeID               string `json:"representativeId"`
	ReportVerifierCompanyID        string `json:"reportVerifierCompanyId"`
	ReportVerifierRepresentativeID string `json:"reportVerifierRepresentativeId"`
	SupplierID                     string `json:"supplierId"`
	ReportCoverTitle               string `json:"reportCoverTitle"`
	ReportCoverContent             string `json:"reportCoverContent"`
}

func (in DataInput) data() (datastore.Data, error) {
	start, err := parseDate(in.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(in.EndDate)
	if err != nil {
		return nil, err
	}
	return datastore.Data{
		"installation_id":                   in.InstallationID,
		"start_date":                        start,
		"end_date":                          end,
		"representative_id":                 nullable(in.RepresentativeID),
		"report_verifier_company_id":        nullable(in.ReportVerifierCompanyID),
		"report_verifier_representative_id": nullable(in.ReportVerifierRepresentativeID),
		"supplier_id":                       nullable(in.SupplierID),
		"report_cover_title":                nullable(in.ReportCoverTitle),
		"report_cover_content":              nullable(in.ReportCoverContent),
	}, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// parseDate accepts ISO dates with or without a time component. Empty
// input maps to NULL.
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

// Service implements installation and reporting-period CRUD.
type Service struct{}

// NewService builds Service instance.
func NewService() *Service {
	return &Service{}
}

// List returns the tenant's installations ordered by name.
func (s *Service) List(ctx context.Context, scope *tenant.Scope) ([]datastore.Record, error) {
	return scope.Store.FindMany(ctx, datastore.KindInstallation, datastore.FindArgs{
		OrderBy: "name asc",
	})
}

// Get returns one installation with its latest reporting periods.
func (s *Service) Get(ctx context.Context, scope *tenant.Scope, id string) (datastore.Record, error) {
	record, err := scope.Store.FindUnique(ctx, datastore.KindInstallation, datastore.Where{"id": id})
	if err != nil {
		return nil, err
	}
	periods, err := scope.Store.FindMany(ctx, datastore.KindInstallationData, datastore.FindArgs{
		Where:   datastore.Where{"installation_id": id},
		OrderBy: "start_date desc",
		Limit:   10,
	})
	if err != nil {
		return nil, err
	}
	record["installationDatas"] = periods
	return record, nil
}

// Create inserts an installation. The referenced company must belong to
// the tenant.
func (s *Service) Create(ctx context.Context, scope *tenant.Scope, input Input) (datastore.Record, error) {
	if _, err := scope.Store.FindUnique(ctx, datastore.KindCompany, datastore.Where{"id": input.CompanyID}); err != nil {
		return nil, err
	}
	data := input.data()
	data["id"] = uuid.NewString()
	return scope.Store.Create(ctx, datastore.KindInstallation, data)
}

// Update replaces the installation's editable fields.
func (s *Service) Update(ctx context.Context, scope *tenant.Scope, id string, input Input) (datastore.Record, error) {
	return scope.Store.Update(ctx, datastore.KindInstallation, datastore.Where{"id": id}, input.data())
}

// Delete removes an installation.
func (s *Service) Delete(ctx context.Context, scope *tenant.Scope, id string) error {
	return scope.Store.Delete(ctx, datastore.KindInstallation, datastore.Where{"id": id})
}

// ListData returns reporting periods, optionally filtered to one
// installation.
func (s *Service) ListData(ctx context.Context, scope *tenant.Scope, installationID string) ([]datastore.Record, error) {
	args := datastore.FindArgs{OrderBy: "start_date desc"}
	if installationID != "" {
		args.Where = datastore.Where{"installation_id": installationID}
	}
	return scope.Store.FindMany(ctx, datastore.KindInstallationData, args)
}

// GetData returns one reporting period.
func (s *Service) GetData(ctx context.Context, scope *tenant.Scope, id string) (datastore.Record, error) {
	return scope.Store.FindUnique(ctx, datastore.KindInstallationData, datastore.Where{"id": id})
}

// CreateData inserts a reporting period after checking the installation
// belongs to the tenant.
func (s *Service) CreateData(ctx context.Context, scope *tenant.Scope, input DataInput) (datastore.Record, error) {
	if _, err := scope.Store.FindUnique(ctx, datastore.KindInstallation, datastore.Where{"id": input.InstallationID}); err != nil {
		return nil, err
	}
	data, err := input.data()
	if err != nil {
		return nil, err
	}
	data["id"] = uuid.NewString()
	return scope.Store.Create(ctx, datastore.KindInstallationData, data)
}

// UpdateData replaces a reporting period's fields.
func (s *Service) UpdateData(ctx context.Context, scope *tenant.Scope, id string, input DataInput) (datastore.Record, error) {
	data, err := input.data()
	if err != nil {
		return nil, err
	}
	return scope.Store.Update(ctx, datastore.KindInstallationData, datastore.Where{"id": id}, data)
}

// DeleteData removes a reporting period.
func (s *Service) DeleteData(ctx context.Context, scope *tenant.Scope, id string) error {
	return scope.Store.Delete(ctx, datastore.KindInstallationData, datastore.Where{"id": id})
}
