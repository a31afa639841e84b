// Package emissions manages source-stream emission records under an
// installation's reporting period. Emission rows carry no tenant column
// of their own; every operation first proves the parent reporting
// period belongs to the caller's tenant.
package emissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

// Input errors.
var (
	ErrMissingParent = errors.New("emissions: installationDataId is required")
	ErrUnknownField  = errors.New("emissions: unknown field")
	ErrBadFieldValue = errors.New("emissions: bad field value")
)

// Payload is the flat emission JSON object keyed by API field name.
type Payload map[string]any

// data converts the payload to store columns, enforcing the field
// allowlist and coercing numbers. Empty strings and nulls map to NULL.
func (p Payload) data() (datastore.Data, error) {
	data := make(datastore.Data, len(p))
	for field, value := range p {
		if field == "installationDataId" {
			continue
		}
		spec, ok := emissionFields[field]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		converted, err := coerce(spec.typ, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadFieldValue, field)
		}
		data[spec.column] = converted
	}
	return data, nil
}

func (p Payload) parentID() string {
	id, _ := p["installationDataId"].(string)
	return id
}

func coerce(typ fieldType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch typ {
	case fieldText:
		s, ok := value.(string)
		if !ok {
			return nil, errors.New("expected string")
		}
		if s == "" {
			return nil, nil
		}
		return s, nil
	case fieldNumber:
		switch v := value.(type) {
		case float64:
			return v, nil
		case json.Number:
			return v.Float64()
		case string:
			if v == "" {
				return nil, nil
			}
			return strconv.ParseFloat(v, 64)
		}
		return nil, errors.New("expected number")
	}
	return nil, errors.New("unknown field type")
}

// Totals aggregates fossil and biogenic CO2e over a reporting period.
type Totals struct {
	Count      int64   `json:"count"`
	Co2eFossil float64 `json:"co2eFossil"`
	Co2eBio    float64 `json:"co2eBio"`
	GwpTco2e   float64 `json:"gwpTco2e"`
}

// Service implements emission CRUD and per-period aggregation.
type Service struct{}

// NewService builds Service instance.
func NewService() *Service {
	return &Service{}
}

// requireParent proves the reporting period belongs to the tenant.
func (s *Service) requireParent(ctx context.Context, scope *tenant.Scope, installationDataID string) error {
	if installationDataID == "" {
		return ErrMissingParent
	}
	_, err := scope.Store.FindUnique(ctx, datastore.KindInstallationData, datastore.Where{"id": installationDataID})
	return err
}

// List returns the period's emissions, newest first.
func (s *Service) List(ctx context.Context, scope *tenant.Scope, installationDataID string) ([]datastore.Record, error) {
	if err := s.requireParent(ctx, scope, installationDataID); err != nil {
		return nil, err
	}
	return scope.Store.FindMany(ctx, datastore.KindEmission, datastore.FindArgs{
		Where:   datastore.Where{"installation_data_id": installationDataID},
		OrderBy: "created_at desc",
	})
}

// Get returns one emission after proving its parent is owned.
func (s *Service) Get(ctx context.Context, scope *tenant.Scope, id string) (datastore.Record, error) {
	record, err := scope.Store.FindUnique(ctx, datastore.KindEmission, datastore.Where{"id": id})
	if err != nil {
		return nil, err
	}
	parentID, _ := record["installation_data_id"].(string)
	if err := s.requireParent(ctx, scope, parentID); err != nil {
		return nil, datastore.ErrNotFound
	}
	return record, nil
}

// Create inserts an emission under an owned reporting period.
func (s *Service) Create(ctx context.Context, scope *tenant.Scope, payload Payload) (datastore.Record, error) {
	parentID := payload.parentID()
	if err := s.requireParent(ctx, scope, parentID); err != nil {
		return nil, err
	}
	data, err := payload.data()
	if err != nil {
		return nil, err
	}
	data["id"] = uuid.NewString()
	data["installation_data_id"] = parentID
	return scope.Store.Create(ctx, datastore.KindEmission, data)
}

// Update replaces fields of an owned emission.
func (s *Service) Update(ctx context.Context, scope *tenant.Scope, id string, payload Payload) (datastore.Record, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	data, err := payload.data()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return scope.Store.FindUnique(ctx, datastore.KindEmission, datastore.Where{"id": id})
	}
	return scope.Store.Update(ctx, datastore.KindEmission, datastore.Where{"id": id}, data)
}

// Delete removes an owned emission.
func (s *Service) Delete(ctx context.Context, scope *tenant.Scope, id string) error {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return err
	}
	return scope.Store.Delete(ctx, datastore.KindEmission, datastore.Where{"id": id})
}

// TotalsFor aggregates CO2e columns over one reporting period.
func (s *Service) TotalsFor(ctx context.Context, scope *tenant.Scope, installationDataID string) (Totals, error) {
	if err := s.requireParent(ctx, scope, installationDataID); err != nil {
		return Totals{}, err
	}
	result, err := scope.Store.Aggregate(ctx, datastore.KindEmission, datastore.AggregateArgs{
		Where: datastore.Where{"installation_data_id": installationDataID},
		Sum:   []string{"co2e_fossil", "co2e_bio", "gwp_tco2e"},
	})
	if err != nil {
		return Totals{}, err
	}
	return Totals{
		Count:      result.Count,
		Co2eFossil: result.Sum["co2e_fossil"],
		Co2eBio:    result.Sum["co2e_bio"],
		GwpTco2e:   result.Sum["gwp_tco2e"],
	}, nil
}
