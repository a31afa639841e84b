// Package company manages the importer's company registry. All reads and
// writes go through the tenant-scoped store, so records never cross
// tenant boundaries.
package company

import (
	"context"

	"github.com/google/uuid"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

// Input carries company form fields. Optional fields map to nullable
// columns; an empty string clears the column.
type Input struct {
	Name             string `json:"name" validate:"required,min=1"`
	OfficialName     string `json:"officialName"`
	TaxNumber        string `json:"taxNumber" validate:"omitempty,max=11"`
	Address          string `json:"address" validate:"omitempty,max=1024"`
	PostCode         string `json:"postCode"`
	Latitude         string `json:"latitude"`
	Longitude        string `json:"longitude"`
	Unlocode         string `json:"unlocode"`
	PoBox            string `json:"poBox"`
	Email            string `json:"email" validate:"omitempty,email"`
	Phone            string `json:"phone"`
	EconomicActivity string `json:"economicActivity"`
	CountryID        string `json:"countryId"`
	CityID           string `json:"cityId"`
	DistrictID       string `json:"districtId"`
	TaxOfficeID      string `json:"taxOfficeId"`
}

func (in Input) data() datastore.Data {
	return datastore.Data{
		"name":              in.Name,
		"official_name":     nullable(in.OfficialName),
		"tax_number":        nullable(in.TaxNumber),
		"address":           nullable(in.Address),
		"post_code":         nullable(in.PostCode),
		"latitude":          nullable(in.Latitude),
		"longitude":         nullable(in.Longitude),
		"unlocode":          nullable(in.Unlocode),
		"po_box":            nullable(in.PoBox),
		"email":             nullable(in.Email),
		"phone":             nullable(in.Phone),
		"economic_activity": nullable(in.EconomicActivity),
		"country_id":        nullable(in.CountryID),
		"city_id":           nullable(in.CityID),
		"district_id":       nullable(in.DistrictID),
		"tax_office_id":     nullable(in.TaxOfficeID),
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Service implements company CRUD over the tenant-scoped store.
type Service struct{}

// NewService builds Service instance.
func NewService() *Service {
	return &Service{}
}

// List returns the tenant's companies ordered by name.
func (s *Service) List(ctx context.Context, scope *tenant.Scope) ([]datastore.Record, error) {
	return scope.Store.FindMany(ctx, datastore.KindCompany, datastore.FindArgs{
		OrderBy: "name asc",
	})
}

// Get returns one company with its installations.
func (s *Service) Get(ctx context.Context, scope *tenant.Scope, id string) (datastore.Record, error) {
	record, err := scope.Store.FindUnique(ctx, datastore.KindCompany, datastore.Where{"id": id})
	if err != nil {
		return nil, err
	}
	installations, err := scope.Store.FindMany(ctx, datastore.KindInstallation, datastore.FindArgs{
		Where:   datastore.Where{"company_id": id},
		OrderBy: "name asc",
	})
	if err != nil {
		return nil, err
	}
	record["installations"] = installations
	return record, nil
}

// Create inserts a company into the tenant.
func (s *Service) Create(ctx context.Context, scope *tenant.Scope, input Input) (datastore.Record, error) {
	data := input.data()
	data["id"] = uuid.NewString()
	return scope.Store.Create(ctx, datastore.KindCompany, data)
}

// Update replaces the company's editable fields.
func (s *Service) Update(ctx context.Context, scope *tenant.Scope, id string, input Input) (datastore.Record, error) {
	return scope.Store.Update(ctx, datastore.KindCompany, datastore.Where{"id": id}, input.data())
}

// Delete removes a company.
func (s *Service) Delete(ctx context.Context, scope *tenant.Scope, id string) error {
	return scope.Store.Delete(ctx, datastore.KindCompany, datastore.Where{"id": id})
}
