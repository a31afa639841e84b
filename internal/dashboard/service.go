// Package dashboard aggregates per-tenant counts and recent activity for
// the landing page.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

// Stats are the tenant's headline numbers.
type Stats struct {
	Companies     int64 `json:"companies"`
	Installations int64 `json:"installations"`
	Emissions     int64 `json:"emissions"`
	Reports       int64 `json:"reports"`
	Declarations  int64 `json:"declarations"`
}

// Overview is the dashboard payload.
type Overview struct {
	Stats              Stats              `json:"stats"`
	RecentDeclarations []datastore.Record `json:"recentDeclarations"`
	RecentReports      []datastore.Record `json:"recentReports"`
}

// Service computes dashboard aggregates.
type Service struct{}

// NewService builds Service instance.
func NewService() *Service {
	return &Service{}
}

// Overview loads counts and the five newest declarations and reports.
// The count queries are independent and run concurrently.
func (s *Service) Overview(ctx context.Context, scope *tenant.Scope) (Overview, error) {
	var out Overview
	g, ctx := errgroup.WithContext(ctx)

	count := func(kind datastore.Kind, dest *int64) {
		g.Go(func() error {
			n, err := scope.Store.Count(ctx, kind, nil)
			*dest = n
			return err
		})
	}
	count(datastore.KindCompany, &out.Stats.Companies)
	count(datastore.KindInstallation, &out.Stats.Installations)
	count(datastore.KindReport, &out.Stats.Reports)
	count(datastore.KindAnnualDeclaration, &out.Stats.Declarations)

	g.Go(func() error {
		n, err := s.countEmissions(ctx, scope)
		out.Stats.Emissions = n
		return err
	})
	g.Go(func() error {
		records, err := scope.Store.FindMany(ctx, datastore.KindAnnualDeclaration, datastore.FindArgs{
			OrderBy: "created_at desc",
			Limit:   5,
		})
		out.RecentDeclarations = records
		return err
	})
	g.Go(func() error {
		records, err := scope.Store.FindMany(ctx, datastore.KindReport, datastore.FindArgs{
			OrderBy: "created_at desc",
			Limit:   5,
		})
		out.RecentReports = records
		return err
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	if out.RecentDeclarations == nil {
		out.RecentDeclarations = []datastore.Record{}
	}
	if out.RecentReports == nil {
		out.RecentReports = []datastore.Record{}
	}
	return out, nil
}

// countEmissions counts emission rows under the tenant's measurement
// periods. Emission rows carry no tenant column, so the count runs over
// the owned parent ids.
func (s *Service) countEmissions(ctx context.Context, scope *tenant.Scope) (int64, error) {
	periods, err := scope.Store.FindMany(ctx, datastore.KindInstallationData, datastore.FindArgs{})
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(periods))
	for _, record := range periods {
		if id, ok := record["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return scope.Store.Count(ctx, datastore.KindEmission, datastore.Where{"installation_data_id": ids})
}
