package tenant_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbamflow/cbamflow/internal/datastore"
	"github.com/cbamflow/cbamflow/internal/tenant"
)

// memStore is an in-memory datastore.Store used to observe exactly what
// the proxy delegates.
type memStore struct {
	records map[datastore.Kind][]datastore.Record
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[datastore.Kind][]datastore.Record)}
}

func matches(record datastore.Record, where datastore.Where) bool {
	for col, want := range where {
		if want == nil {
			if record[col] != nil {
				return false
			}
			continue
		}
		if record[col] != want {
			return false
		}
	}
	return true
}

func (m *memStore) FindMany(_ context.Context, kind datastore.Kind, args datastore.FindArgs) ([]datastore.Record, error) {
	var out []datastore.Record
	for _, record := range m.records[kind] {
		if matches(record, args.Where) {
			out = append(out, record)
		}
	}
	return out, nil
}

func (m *memStore) FindFirst(ctx context.Context, kind datastore.Kind, args datastore.FindArgs) (datastore.Record, error) {
	records, err := m.FindMany(ctx, kind, args)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, datastore.ErrNotFound
	}
	return records[0], nil
}

func (m *memStore) FindUnique(_ context.Context, kind datastore.Kind, where datastore.Where) (datastore.Record, error) {
	for _, record := range m.records[kind] {
		if matches(record, where) {
			return record, nil
		}
	}
	return nil, datastore.ErrNotFound
}

func (m *memStore) Create(_ context.Context, kind datastore.Kind, data datastore.Data) (datastore.Record, error) {
	record := datastore.Record(data.Clone())
	if _, ok := record["id"]; !ok {
		m.nextID++
		record["id"] = fmt.Sprintf("%s-%d", kind, m.nextID)
	}
	m.records[kind] = append(m.records[kind], record)
	return record, nil
}

func (m *memStore) CreateMany(ctx context.Context, kind datastore.Kind, data []datastore.Data) (int64, error) {
	for _, d := range data {
		if _, err := m.Create(ctx, kind, d); err != nil {
			return 0, err
		}
	}
	return int64(len(data)), nil
}

func (m *memStore) Update(_ context.Context, kind datastore.Kind, where datastore.Where, data datastore.Data) (datastore.Record, error) {
	for _, record := range m.records[kind] {
		if matches(record, where) {
			for col, value := range data {
				record[col] = value
			}
			return record, nil
		}
	}
	return nil, datastore.ErrNotFound
}

func (m *memStore) UpdateMany(_ context.Context, kind datastore.Kind, where datastore.Where, data datastore.Data) (int64, error) {
	var n int64
	for _, record := range m.records[kind] {
		if matches(record, where) {
			for col, value := range data {
				record[col] = value
			}
			n++
		}
	}
	return n, nil
}

func (m *memStore) Delete(_ context.Context, kind datastore.Kind, where datastore.Where) error {
	for i, record := range m.records[kind] {
		if matches(record, where) {
			m.records[kind] = append(m.records[kind][:i], m.records[kind][i+1:]...)
			return nil
		}
	}
	return datastore.ErrNotFound
}

func (m *memStore) DeleteMany(_ context.Context, kind datastore.Kind, where datastore.Where) (int64, error) {
	var (
		kept []datastore.Record
		n    int64
	)
	for _, record := range m.records[kind] {
		if matches(record, where) {
			n++
			continue
		}
		kept = append(kept, record)
	}
	m.records[kind] = kept
	return n, nil
}

func (m *memStore) Count(_ context.Context, kind datastore.Kind, where datastore.Where) (int64, error) {
	var n int64
	for _, record := range m.records[kind] {
		if matches(record, where) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Aggregate(_ context.Context, kind datastore.Kind, args datastore.AggregateArgs) (datastore.AggregateResult, error) {
	result := datastore.AggregateResult{
		Sum: make(map[string]float64),
		Avg: make(map[string]float64),
	}
	for _, record := range m.records[kind] {
		if !matches(record, args.Where) {
			continue
		}
		result.Count++
		for _, col := range args.Sum {
			if v, ok := record[col].(float64); ok {
				result.Sum[col] += v
			}
		}
	}
	for _, col := range args.Avg {
		if result.Count > 0 {
			result.Avg[col] = result.Sum[col] / float64(result.Count)
		}
	}
	return result, nil
}

var _ datastore.Store = (*memStore)(nil)

func seedTwoTenants(t *testing.T) (*memStore, *tenant.ScopedStore, *tenant.ScopedStore) {
	t.Helper()
	store := newMemStore()
	ctx := context.Background()
	for _, record := range []datastore.Data{
		{"id": "c1", "tenant_id": "tenant-a", "name": "Acme"},
		{"id": "c2", "tenant_id": "tenant-b", "name": "Borubar"},
		{"id": "c3", "tenant_id": "tenant-b", "name": "Roder"},
	} {
		_, err := store.Create(ctx, datastore.KindCompany, record)
		require.NoError(t, err)
	}
	return store, tenant.NewScopedStore(store, "tenant-a"), tenant.NewScopedStore(store, "tenant-b")
}

func TestFindManyScopesToTenant(t *testing.T) {
	_, scopeA, scopeB := seedTwoTenants(t)
	ctx := context.Background()

	records, err := scopeA.FindMany(ctx, datastore.KindCompany, datastore.FindArgs{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Acme", records[0]["name"])

	records, err = scopeB.FindMany(ctx, datastore.KindCompany, datastore.FindArgs{})
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestFindManyOverridesCallerTenantFilter(t *testing.T) {
	_, scopeA, _ := seedTwoTenants(t)

	// A caller explicitly asking for another tenant's rows still only
	// sees its own.
	records, err := scopeA.FindMany(context.Background(), datastore.KindCompany, datastore.FindArgs{
		Where: datastore.Where{"tenant_id": "tenant-b"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "tenant-a", records[0]["tenant_id"])
}

func TestFindManyDoesNotMutateCallerWhere(t *testing.T) {
	_, scopeA, _ := seedTwoTenants(t)

	where := datastore.Where{"name": "Acme"}
	_, err := scopeA.FindMany(context.Background(), datastore.KindCompany, datastore.FindArgs{Where: where})
	require.NoError(t, err)
	require.NotContains(t, where, "tenant_id")
}

func TestCreateStampsBoundTenant(t *testing.T) {
	store := newMemStore()
	scope := tenant.NewScopedStore(store, "tenant-a")

	record, err := scope.Create(context.Background(), datastore.KindCompany, datastore.Data{
		"name":      "Ecosfer",
		"tenant_id": "tenant-b", // must be overridden
	})
	require.NoError(t, err)
	require.Equal(t, "tenant-a", record["tenant_id"])
}

func TestCreateManyStampsEveryElement(t *testing.T) {
	store := newMemStore()
	scope := tenant.NewScopedStore(store, "tenant-a")
	ctx := context.Background()

	n, err := scope.CreateMany(ctx, datastore.KindSupplier, []datastore.Data{
		{"name": "Steelworks"},
		{"name": "Foundry", "tenant_id": "tenant-b"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	for _, record := range store.records[datastore.KindSupplier] {
		require.Equal(t, "tenant-a", record["tenant_id"])
	}
}

func TestFindUniquePostFiltersForeignTenant(t *testing.T) {
	_, scopeA, scopeB := seedTwoTenants(t)
	ctx := context.Background()

	// The owner sees the record.
	record, err := scopeA.FindUnique(ctx, datastore.KindCompany, datastore.Where{"id": "c1"})
	require.NoError(t, err)
	require.Equal(t, "Acme", record["name"])

	// Another tenant gets the same answer as for a nonexistent record.
	_, err = scopeB.FindUnique(ctx, datastore.KindCompany, datastore.Where{"id": "c1"})
	require.ErrorIs(t, err, datastore.ErrNotFound)
	_, err = scopeB.FindUnique(ctx, datastore.KindCompany, datastore.Where{"id": "missing"})
	require.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestUpdateByUniqueKeyForeignTenantIsNotFound(t *testing.T) {
	store, _, scopeB := seedTwoTenants(t)

	_, err := scopeB.Update(context.Background(), datastore.KindCompany,
		datastore.Where{"id": "c1"}, datastore.Data{"name": "Hijacked"})
	require.ErrorIs(t, err, datastore.ErrNotFound)

	// The record is untouched.
	require.Equal(t, "Acme", store.records[datastore.KindCompany][0]["name"])
}

func TestDeleteByUniqueKeyForeignTenantIsNotFound(t *testing.T) {
	store, _, scopeB := seedTwoTenants(t)

	err := scopeB.Delete(context.Background(), datastore.KindCompany, datastore.Where{"id": "c1"})
	require.ErrorIs(t, err, datastore.ErrNotFound)
	require.Len(t, store.records[datastore.KindCompany], 3)
}

func TestUpdateManyAndDeleteManyAreScoped(t *testing.T) {
	store, scopeA, _ := seedTwoTenants(t)
	ctx := context.Background()

	n, err := scopeA.UpdateMany(ctx, datastore.KindCompany, datastore.Where{}, datastore.Data{"reviewed": true})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = scopeA.DeleteMany(ctx, datastore.KindCompany, datastore.Where{})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Len(t, store.records[datastore.KindCompany], 2)
}

func TestCountAndAggregateAreScoped(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	for _, record := range []datastore.Data{
		{"tenant_id": "tenant-a", "total_emissions": 10.0},
		{"tenant_id": "tenant-a", "total_emissions": 30.0},
		{"tenant_id": "tenant-b", "total_emissions": 100.0},
	} {
		_, err := store.Create(ctx, datastore.KindInstallationData, record)
		require.NoError(t, err)
	}
	scope := tenant.NewScopedStore(store, "tenant-a")

	count, err := scope.Count(ctx, datastore.KindInstallationData, datastore.Where{"tenant_id": "tenant-b"})
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	result, err := scope.Aggregate(ctx, datastore.KindInstallationData, datastore.AggregateArgs{
		Sum: []string{"total_emissions"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), result.Count)
	require.Equal(t, 40.0, result.Sum["total_emissions"])
}

func TestGlobalKindsPassThrough(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	_, err := store.Create(ctx, datastore.KindCountry, datastore.Data{"id": "TR", "name": "Turkiye"})
	require.NoError(t, err)

	scope := tenant.NewScopedStore(store, "tenant-a")

	records, err := scope.FindMany(ctx, datastore.KindCountry, datastore.FindArgs{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	record, err := scope.Create(ctx, datastore.KindCountry, datastore.Data{"id": "DE", "name": "Germany"})
	require.NoError(t, err)
	require.NotContains(t, record, "tenant_id")
}

func TestCrossTenantScenario(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	scopeA := tenant.NewScopedStore(store, "tenant-a")
	scopeB := tenant.NewScopedStore(store, "tenant-b")

	created, err := scopeA.Create(ctx, datastore.KindCompany, datastore.Data{"id": "c1", "name": "Acme"})
	require.NoError(t, err)
	require.Equal(t, "tenant-a", created["tenant_id"])

	_, err = scopeB.FindUnique(ctx, datastore.KindCompany, datastore.Where{"id": "c1"})
	require.ErrorIs(t, err, datastore.ErrNotFound)

	records, err := scopeB.FindMany(ctx, datastore.KindCompany, datastore.FindArgs{})
	require.NoError(t, err)
	require.Empty(t, records)

	record, err := scopeA.FindUnique(ctx, datastore.KindCompany, datastore.Where{"id": "c1"})
	require.NoError(t, err)
	require.Equal(t, "Acme", record["name"])
}
