// Package refdata serves global reference data: countries, cities,
// districts, tax offices and CN codes. These kinds carry no tenant
// column and are identical for every tenant, so reads run against the
// unscoped store behind a Redis read-through cache. Concurrent misses
// for the same key are collapsed with singleflight.
package refdata

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/cbamflow/cbamflow/internal/datastore"
)

const cacheTTL = 12 * time.Hour

// Service reads reference data.
type Service struct {
	store  datastore.Store
	redis  *redis.Client
	logger *slog.Logger
	group  singleflight.Group
}

// NewService builds Service instance. redis may be nil, which disables
// caching but keeps miss collapsing.
func NewService(logger *slog.Logger, store datastore.Store, rdb *redis.Client) *Service {
	return &Service{store: store, redis: rdb, logger: logger}
}

// Countries lists all countries ordered by name.
func (s *Service) Countries(ctx context.Context) ([]datastore.Record, error) {
	return s.cached(ctx, "refdata:countries", func(ctx context.Context) ([]datastore.Record, error) {
		return s.store.FindMany(ctx, datastore.KindCountry, datastore.FindArgs{OrderBy: "name asc"})
	})
}

// Cities lists the cities of one country. An empty country id yields an
// empty list rather than the whole table.
func (s *Service) Cities(ctx context.Context, countryID string) ([]datastore.Record, error) {
	if countryID == "" {
		return []datastore.Record{}, nil
	}
	return s.cached(ctx, "refdata:cities:"+countryID, func(ctx context.Context) ([]datastore.Record, error) {
		return s.store.FindMany(ctx, datastore.KindCity, datastore.FindArgs{
			Where:   datastore.Where{"country_id": countryID},
			OrderBy: "name asc",
		})
	})
}

// Districts lists the districts of one city.
func (s *Service) Districts(ctx context.Context, cityID string) ([]datastore.Record, error) {
	if cityID == "" {
		return []datastore.Record{}, nil
	}
	return s.cached(ctx, "refdata:districts:"+cityID, func(ctx context.Context) ([]datastore.Record, error) {
		return s.store.FindMany(ctx, datastore.KindDistrict, datastore.FindArgs{
			Where:   datastore.Where{"city_id": cityID},
			OrderBy: "name asc",
		})
	})
}

// TaxOffices lists all tax offices ordered by name.
func (s *Service) TaxOffices(ctx context.Context) ([]datastore.Record, error) {
	return s.cached(ctx, "refdata:taxoffices", func(ctx context.Context) ([]datastore.Record, error) {
		return s.store.FindMany(ctx, datastore.KindTaxOffice, datastore.FindArgs{OrderBy: "name asc"})
	})
}

// CnCodes lists the CN codes of one goods category.
func (s *Service) CnCodes(ctx context.Context, goodsCategoryID string) ([]datastore.Record, error) {
	if goodsCategoryID == "" {
		return []datastore.Record{}, nil
	}
	return s.cached(ctx, "refdata:cncodes:"+goodsCategoryID, func(ctx context.Context) ([]datastore.Record, error) {
		return s.store.FindMany(ctx, datastore.KindCnCode, datastore.FindArgs{
			Where:   datastore.Where{"goods_category_id": goodsCategoryID},
			OrderBy: "code asc",
		})
	})
}

// cached is a read-through cache. Redis failures degrade to direct
// store reads; reference data must stay available without the cache.
func (s *Service) cached(ctx context.Context, key string, fetch func(context.Context) ([]datastore.Record, error)) ([]datastore.Record, error) {
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			var records []datastore.Record
			if jsonErr := json.Unmarshal(raw, &records); jsonErr == nil {
				return records, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("refdata cache read", slog.String("key", key), slog.Any("error", err))
		}
	}

	result := s.group.DoChan(key, func() (any, error) {
		records, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []datastore.Record{}
		}
		if s.redis != nil {
			if raw, err := json.Marshal(records); err == nil {
				if err := s.redis.Set(context.WithoutCancel(ctx), key, raw, cacheTTL).Err(); err != nil {
					s.logger.Warn("refdata cache write", slog.String("key", key), slog.Any("error", err))
				}
			}
		}
		return records, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]datastore.Record), nil
	}
}
