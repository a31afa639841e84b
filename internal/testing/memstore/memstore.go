// Package memstore provides an in-memory datastore.Store for tests.
// Filtering is equality only and ordering is ignored, which is enough
// to observe what services delegate to the store.
package memstore

import (
	"context"
	"fmt"
	"reflect"

	"github.com/cbamflow/cbamflow/internal/datastore"
)

// Store is an in-memory datastore.Store.
type Store struct {
	records map[datastore.Kind][]datastore.Record
	nextID  int
}

// New builds an empty store.
func New() *Store {
	return &Store{records: make(map[datastore.Kind][]datastore.Record)}
}

// Records exposes the raw rows of a kind for assertions.
func (m *Store) Records(kind datastore.Kind) []datastore.Record {
	return m.records[kind]
}

// Seed inserts rows directly, bypassing any scoping.
func (m *Store) Seed(kind datastore.Kind, rows ...datastore.Data) {
	for _, row := range rows {
		_, _ = m.Create(context.Background(), kind, row)
	}
}

func matches(record datastore.Record, where datastore.Where) bool {
	for col, want := range where {
		if want == nil {
			if record[col] != nil {
				return false
			}
			continue
		}
		// Slice values are membership tests, like the SQL IN the real
		// store renders.
		rv := reflect.ValueOf(want)
		if rv.Kind() == reflect.Slice {
			found := false
			for i := 0; i < rv.Len(); i++ {
				if record[col] == rv.Index(i).Interface() {
					found = true
					break
				}
			}
			if !found {
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

func (m *Store) FindMany(_ context.Context, kind datastore.Kind, args datastore.FindArgs) ([]datastore.Record, error) {
	var out []datastore.Record
	for _, record := range m.records[kind] {
		if matches(record, args.Where) {
			out = append(out, record)
		}
	}
	if args.Limit > 0 && len(out) > args.Limit {
		out = out[:args.Limit]
	}
	return out, nil
}

func (m *Store) FindFirst(ctx context.Context, kind datastore.Kind, args datastore.FindArgs) (datastore.Record, error) {
	records, err := m.FindMany(ctx, kind, args)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, datastore.ErrNotFound
	}
	return records[0], nil
}

func (m *Store) FindUnique(_ context.Context, kind datastore.Kind, where datastore.Where) (datastore.Record, error) {
	for _, record := range m.records[kind] {
		if matches(record, where) {
			return record, nil
		}
	}
	return nil, datastore.ErrNotFound
}

func (m *Store) Create(_ context.Context, kind datastore.Kind, data datastore.Data) (datastore.Record, error) {
	record := datastore.Record(data.Clone())
	if _, ok := record["id"]; !ok {
		m.nextID++
		record["id"] = fmt.Sprintf("%s-%d", kind, m.nextID)
	}
	m.records[kind] = append(m.records[kind], record)
	return record, nil
}

func (m *Store) CreateMany(ctx context.Context, kind datastore.Kind, data []datastore.Data) (int64, error) {
	for _, d := range data {
		if _, err := m.Create(ctx, kind, d); err != nil {
			return 0, err
		}
	}
	return int64(len(data)), nil
}

func (m *Store) Update(_ context.Context, kind datastore.Kind, where datastore.Where, data datastore.Data) (datastore.Record, error) {
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

func (m *Store) UpdateMany(_ context.Context, kind datastore.Kind, where datastore.Where, data datastore.Data) (int64, error) {
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

func (m *Store) Delete(_ context.Context, kind datastore.Kind, where datastore.Where) error {
	for i, record := range m.records[kind] {
		if matches(record, where) {
			m.records[kind] = append(m.records[kind][:i], m.records[kind][i+1:]...)
			return nil
		}
	}
	return datastore.ErrNotFound
}

func (m *Store) DeleteMany(_ context.Context, kind datastore.Kind, where datastore.Where) (int64, error) {
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

func (m *Store) Count(_ context.Context, kind datastore.Kind, where datastore.Where) (int64, error) {
	var n int64
	for _, record := range m.records[kind] {
		if matches(record, where) {
			n++
		}
	}
	return n, nil
}

func (m *Store) Aggregate(_ context.Context, kind datastore.Kind, args datastore.AggregateArgs) (datastore.AggregateResult, error) {
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
		for _, col := range args.Avg {
			if v, ok := record[col].(float64); ok {
				result.Avg[col] += v
			}
		}
	}
	for _, col := range args.Avg {
		if result.Count > 0 {
			result.Avg[col] = result.Avg[col] / float64(result.Count)
		}
	}
	return result, nil
}

var _ datastore.Store = (*Store)(nil)
