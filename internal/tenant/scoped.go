package tenant

import (
	"context"

	"github.com/cbamflow/cbamflow/internal/datastore"
)

// ScopedStore decorates a datastore.Store with tenant isolation. For
// every scoped kind the bound tenant id is merged into filters and
// payloads, overriding whatever the caller supplied, so scoping cannot be
// bypassed by a conflicting filter. Point lookups by non-tenant unique
// keys are handled specially: FindUnique post-filters the fetched record,
// Update and Delete composite the tenant id into the unique-key match so
// the store itself reports zero rows for foreign records.
//
// Underlying store errors propagate unchanged; the only substitution the
// proxy makes is "not found" for records owned by another tenant, which
// keeps cross-tenant existence unobservable.
type ScopedStore struct {
	store    datastore.Store
	tenantID string
}

// NewScopedStore binds store operations to tenantID.
func NewScopedStore(store datastore.Store, tenantID string) *ScopedStore {
	return &ScopedStore{store: store, tenantID: tenantID}
}

// TenantID returns the tenant this store is bound to.
func (s *ScopedStore) TenantID() string {
	return s.tenantID
}

func (s *ScopedStore) scopeWhere(kind datastore.Kind, where datastore.Where) datastore.Where {
	if !IsScoped(kind) {
		return where
	}
	scoped := where.Clone()
	scoped[datastore.FieldTenantID] = s.tenantID
	return scoped
}

func (s *ScopedStore) scopeData(kind datastore.Kind, data datastore.Data) datastore.Data {
	if !IsScoped(kind) {
		return data
	}
	scoped := data.Clone()
	scoped[datastore.FieldTenantID] = s.tenantID
	return scoped
}

// FindMany lists records within the bound tenant.
func (s *ScopedStore) FindMany(ctx context.Context, kind datastore.Kind, args datastore.FindArgs) ([]datastore.Record, error) {
	args.Where = s.scopeWhere(kind, args.Where)
	return s.store.FindMany(ctx, kind, args)
}

// FindFirst returns the first matching record within the bound tenant.
func (s *ScopedStore) FindFirst(ctx context.Context, kind datastore.Kind, args datastore.FindArgs) (datastore.Record, error) {
	args.Where = s.scopeWhere(kind, args.Where)
	return s.store.FindFirst(ctx, kind, args)
}

// FindUnique looks up a record by unique key. Adding a tenant predicate
// would break the unique-key addressing of the underlying store, so the
// lookup runs unscoped and the result is checked before anything is
// returned: a record owned by another tenant is reported as not found.
func (s *ScopedStore) FindUnique(ctx context.Context, kind datastore.Kind, where datastore.Where) (datastore.Record, error) {
	record, err := s.store.FindUnique(ctx, kind, where)
	if err != nil {
		return nil, err
	}
	if IsScoped(kind) {
		owner, _ := record[datastore.FieldTenantID].(string)
		if owner != s.tenantID {
			return nil, datastore.ErrNotFound
		}
	}
	return record, nil
}

// Create inserts a record owned by the bound tenant regardless of any
// caller-supplied tenant value.
func (s *ScopedStore) Create(ctx context.Context, kind datastore.Kind, data datastore.Data) (datastore.Record, error) {
	return s.store.Create(ctx, kind, s.scopeData(kind, data))
}

// CreateMany inserts a batch, stamping every element with the bound
// tenant.
func (s *ScopedStore) CreateMany(ctx context.Context, kind datastore.Kind, data []datastore.Data) (int64, error) {
	if IsScoped(kind) {
		scoped := make([]datastore.Data, len(data))
		for i, d := range data {
			scoped[i] = s.scopeData(kind, d)
		}
		data = scoped
	}
	return s.store.CreateMany(ctx, kind, data)
}

// Update modifies a record addressed by unique key. The tenant id is
// composited into the match, so a record owned by another tenant yields
// zero rows and surfaces as not found rather than a silent success.
func (s *ScopedStore) Update(ctx context.Context, kind datastore.Kind, where datastore.Where, data datastore.Data) (datastore.Record, error) {
	return s.store.Update(ctx, kind, s.scopeWhere(kind, where), data)
}

// UpdateMany modifies every matching record within the bound tenant.
func (s *ScopedStore) UpdateMany(ctx context.Context, kind datastore.Kind, where datastore.Where, data datastore.Data) (int64, error) {
	return s.store.UpdateMany(ctx, kind, s.scopeWhere(kind, where), data)
}

// Delete removes a record addressed by unique key, compositing the
// tenant id into the match.
func (s *ScopedStore) Delete(ctx context.Context, kind datastore.Kind, where datastore.Where) error {
	return s.store.Delete(ctx, kind, s.scopeWhere(kind, where))
}

// DeleteMany removes every matching record within the bound tenant.
func (s *ScopedStore) DeleteMany(ctx context.Context, kind datastore.Kind, where datastore.Where) (int64, error) {
	return s.store.DeleteMany(ctx, kind, s.scopeWhere(kind, where))
}

// Count counts records within the bound tenant.
func (s *ScopedStore) Count(ctx context.Context, kind datastore.Kind, where datastore.Where) (int64, error) {
	return s.store.Count(ctx, kind, s.scopeWhere(kind, where))
}

// Aggregate computes aggregates within the bound tenant.
func (s *ScopedStore) Aggregate(ctx context.Context, kind datastore.Kind, args datastore.AggregateArgs) (datastore.AggregateResult, error) {
	args.Where = s.scopeWhere(kind, args.Where)
	return s.store.Aggregate(ctx, kind, args)
}

var _ datastore.Store = (*ScopedStore)(nil)
