package refdata_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/refdata"
	"github.com/cbamflow/cbamflow/internal/testing/memstore"
)

type countingStore struct {
	*memstore.Store
	finds int
}

func (c *countingStore) FindMany(ctx context.Context, kind datastore.Kind, args datastore.FindArgs) ([]datastore.Record, error) {
	c.finds++
	return c.Store.FindMany(ctx, kind, args)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCountriesServedFromCacheOnSecondRead(t *testing.T) {
	store := &countingStore{Store: memstore.New()}
	store.Seed(datastore.KindCountry,
		datastore.Data{"id": "tr", "name": "Turkiye", "code": "TR"},
		datastore.Data{"id": "de", "name": "Germany", "code": "DE"})
	service := refdata.NewService(slog.Default(), store, newRedis(t))
	ctx := context.Background()

	first, err := service.Countries(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, 1, store.finds)

	second, err := service.Countries(ctx)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Equal(t, 1, store.finds)
}

func TestCitiesRequireCountryFilter(t *testing.T) {
	store := &countingStore{Store: memstore.New()}
	store.Seed(datastore.KindCity,
		datastore.Data{"id": "ist", "name": "Istanbul", "country_id": "tr"},
		datastore.Data{"id": "ber", "name": "Berlin", "country_id": "de"})
	service := refdata.NewService(slog.Default(), store, newRedis(t))
	ctx := context.Background()

	cities, err := service.Cities(ctx, "tr")
	require.NoError(t, err)
	require.Len(t, cities, 1)
	require.Equal(t, "Istanbul", cities[0]["name"])

	// No filter means no rows, never the whole table.
	cities, err = service.Cities(ctx, "")
	require.NoError(t, err)
	require.Empty(t, cities)
	require.Equal(t, 1, store.finds)
}

func TestReadsWorkWithoutRedis(t *testing.T) {
	store := &countingStore{Store: memstore.New()}
	store.Seed(datastore.KindTaxOffice,
		datastore.Data{"id": "to1", "name": "Kadikoy"})
	service := refdata.NewService(slog.Default(), store, nil)

	offices, err := service.TaxOffices(context.Background())
	require.NoError(t, err)
	require.Len(t, offices, 1)
}
