package datastore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FieldTenantID is the column carrying tenant ownership on scoped kinds.
const FieldTenantID = "tenant_id"

// tables maps entity kinds to physical tables. A kind missing here is a
// programmer error surfaced as ErrUnknownKind.
var tables = map[Kind]string{
	KindCompany:                       "companies",
	KindInstallation:                  "installations",
	KindPerson:                        "persons",
	KindInstallationData:              "installation_data",
	KindSupplier:                      "suppliers",
	KindReport:                        "reports",
	KindReportTemplate:                "report_templates",
	KindReportVerifierCompany:         "report_verifier_companies",
	KindReportVerifierRepresentative:  "report_verifier_representatives",
	KindAnnualDeclaration:             "annual_declarations",
	KindCbamCertificate:               "cbam_certificates",
	KindMonitoringPlan:                "monitoring_plans",
	KindVerificationDocument:          "verification_documents",
	KindAuthorisationApplication:      "authorisation_applications",
	KindOperatorRegistration:          "operator_registrations",
	KindAccreditedVerifier:            "accredited_verifiers",
	KindIndirectCustomsRepresentative: "indirect_customs_representatives",
	KindImporter:                      "importers",
	KindEmission:                      "emissions",
	KindFuelBalance:                   "fuel_balances",
	KindGhgBalanceByType:              "ghg_balances_by_type",
	KindCertificateSurrender:          "certificate_surrenders",
	KindFreeAllocationAdjustment:      "free_allocation_adjustments",
	KindSupplierSurvey:                "supplier_surveys",
	KindReportSection:                 "report_sections",
	KindReportSectionContent:          "report_section_contents",
	KindTenant:                        "tenants",
	KindUser:                          "users",
	KindCountry:                       "countries",
	KindCity:                          "cities",
	KindDistrict:                      "districts",
	KindTaxOffice:                     "tax_offices",
	KindCnCode:                        "cn_codes",
}

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// PGStore implements Store on a pgx connection pool. Filters and payloads
// are rendered to parameterized SQL; column names are validated against a
// strict identifier pattern before interpolation.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func tableFor(kind Kind) (string, error) {
	table, ok := tables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return table, nil
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidField, name)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildWhere renders a conjunction over sorted columns. Placeholders are
// numbered starting after argOffset.
func buildWhere(where Where, argOffset int) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	var (
		parts = make([]string, 0, len(where))
		args  = make([]any, 0, len(where))
		n     = argOffset
	)
	for _, col := range sortedKeys(where) {
		if err := checkIdent(col); err != nil {
			return "", nil, err
		}
		value := where[col]
		if value == nil {
			parts = append(parts, col+" IS NULL")
			continue
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			placeholders := make([]string, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				n++
				placeholders[i] = fmt.Sprintf("$%d", n)
				args = append(args, rv.Index(i).Interface())
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))
			continue
		}
		n++
		parts = append(parts, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, value)
	}
	return strings.Join(parts, " AND "), args, nil
}

func buildOrderBy(orderBy string) (string, error) {
	fields := strings.Split(orderBy, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		tokens := strings.Fields(strings.TrimSpace(field))
		if len(tokens) == 0 || len(tokens) > 2 {
			return "", fmt.Errorf("%w: order by %q", ErrInvalidField, field)
		}
		if err := checkIdent(tokens[0]); err != nil {
			return "", err
		}
		clause := tokens[0]
		if len(tokens) == 2 {
			switch strings.ToUpper(tokens[1]) {
			case "ASC":
				clause += " ASC"
			case "DESC":
				clause += " DESC"
			default:
				return "", fmt.Errorf("%w: order direction %q", ErrInvalidField, tokens[1])
			}
		}
		out = append(out, clause)
	}
	return strings.Join(out, ", "), nil
}

func buildSelect(kind Kind, args FindArgs) (string, []any, error) {
	table, err := tableFor(kind)
	if err != nil {
		return "", nil, err
	}
	query := "SELECT * FROM " + table
	clause, params, err := buildWhere(args.Where, 0)
	if err != nil {
		return "", nil, err
	}
	if clause != "" {
		query += " WHERE " + clause
	}
	if args.OrderBy != "" {
		orderBy, err := buildOrderBy(args.OrderBy)
		if err != nil {
			return "", nil, err
		}
		query += " ORDER BY " + orderBy
	}
	if args.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", args.Limit)
	}
	if args.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", args.Offset)
	}
	return query, params, nil
}

func buildInsert(kind Kind, data Data) (string, []any, error) {
	table, err := tableFor(kind)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrInvalidField)
	}
	cols := sortedKeys(data)
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		if err := checkIdent(col); err != nil {
			return "", nil, err
		}
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = data[col]
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	return query, args, nil
}

func buildUpdate(kind Kind, where Where, data Data) (string, []any, error) {
	table, err := tableFor(kind)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrInvalidField)
	}
	cols := sortedKeys(data)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(where))
	for i, col := range cols {
		if err := checkIdent(col); err != nil {
			return "", nil, err
		}
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
		args = append(args, data[col])
	}
	query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(sets, ", "))
	clause, whereArgs, err := buildWhere(where, len(cols))
	if err != nil {
		return "", nil, err
	}
	if clause != "" {
		query += " WHERE " + clause
		args = append(args, whereArgs...)
	}
	return query, args, nil
}

func buildDelete(kind Kind, where Where) (string, []any, error) {
	table, err := tableFor(kind)
	if err != nil {
		return "", nil, err
	}
	query := "DELETE FROM " + table
	clause, args, err := buildWhere(where, 0)
	if err != nil {
		return "", nil, err
	}
	if clause != "" {
		query += " WHERE " + clause
	}
	return query, args, nil
}

// FindMany returns every record matching args.
func (s *PGStore) FindMany(ctx context.Context, kind Kind, args FindArgs) ([]Record, error) {
	query, params, err := buildSelect(kind, args)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	records := make([]Record, len(maps))
	for i, m := range maps {
		records[i] = Record(m)
	}
	return records, nil
}

// FindFirst returns the first record matching args or ErrNotFound.
func (s *PGStore) FindFirst(ctx context.Context, kind Kind, args FindArgs) (Record, error) {
	args.Limit = 1
	records, err := s.FindMany(ctx, kind, args)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// FindUnique addresses a single record by unique key.
func (s *PGStore) FindUnique(ctx context.Context, kind Kind, where Where) (Record, error) {
	query, params, err := buildSelect(kind, FindArgs{Where: where, Limit: 1})
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return Record(m), nil
}

// Create inserts one record and returns it as stored.
func (s *PGStore) Create(ctx context.Context, kind Kind, data Data) (Record, error) {
	query, args, err := buildInsert(kind, data)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	return Record(m), nil
}

// CreateMany inserts a batch of records sharing the same column set and
// returns the number inserted.
func (s *PGStore) CreateMany(ctx context.Context, kind Kind, data []Data) (int64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	cols := sortedKeys(data[0])
	for _, col := range cols {
		if err := checkIdent(col); err != nil {
			return 0, err
		}
	}
	var (
		groups = make([]string, 0, len(data))
		args   = make([]any, 0, len(data)*len(cols))
		n      = 0
	)
	for _, row := range data {
		if len(row) != len(cols) {
			return 0, fmt.Errorf("%w: heterogeneous batch payload", ErrInvalidField)
		}
		placeholders := make([]string, len(cols))
		for i, col := range cols {
			value, ok := row[col]
			if !ok {
				return 0, fmt.Errorf("%w: heterogeneous batch payload", ErrInvalidField)
			}
			n++
			placeholders[i] = fmt.Sprintf("$%d", n)
			args = append(args, value)
		}
		groups = append(groups, "("+strings.Join(placeholders, ", ")+")")
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(cols, ", "), strings.Join(groups, ", "),
	)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Update modifies the record addressed by where and returns it, or
// ErrNotFound when nothing matched.
func (s *PGStore) Update(ctx context.Context, kind Kind, where Where, data Data) (Record, error) {
	query, args, err := buildUpdate(kind, where, data)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query+" RETURNING *", args...)
	if err != nil {
		return nil, err
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return Record(m), nil
}

// UpdateMany modifies every matching record and returns the count.
func (s *PGStore) UpdateMany(ctx context.Context, kind Kind, where Where, data Data) (int64, error) {
	query, args, err := buildUpdate(kind, where, data)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes the record addressed by where, ErrNotFound when nothing
// matched.
func (s *PGStore) Delete(ctx context.Context, kind Kind, where Where) error {
	query, args, err := buildDelete(kind, where)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMany removes every matching record and returns the count.
func (s *PGStore) DeleteMany(ctx context.Context, kind Kind, where Where) (int64, error) {
	query, args, err := buildDelete(kind, where)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of records matching where.
func (s *PGStore) Count(ctx context.Context, kind Kind, where Where) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	query := "SELECT COUNT(*) FROM " + table
	clause, args, err := buildWhere(where, 0)
	if err != nil {
		return 0, err
	}
	if clause != "" {
		query += " WHERE " + clause
	}
	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Aggregate computes COUNT plus the requested SUM/AVG columns.
func (s *PGStore) Aggregate(ctx context.Context, kind Kind, args AggregateArgs) (AggregateResult, error) {
	table, err := tableFor(kind)
	if err != nil {
		return AggregateResult{}, err
	}
	selects := []string{"COUNT(*)"}
	for _, col := range args.Sum {
		if err := checkIdent(col); err != nil {
			return AggregateResult{}, err
		}
		selects = append(selects, fmt.Sprintf("COALESCE(SUM(%s), 0)::float8", col))
	}
	for _, col := range args.Avg {
		if err := checkIdent(col); err != nil {
			return AggregateResult{}, err
		}
		selects = append(selects, fmt.Sprintf("COALESCE(AVG(%s), 0)::float8", col))
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), table)
	clause, params, err := buildWhere(args.Where, 0)
	if err != nil {
		return AggregateResult{}, err
	}
	if clause != "" {
		query += " WHERE " + clause
	}

	result := AggregateResult{
		Sum: make(map[string]float64, len(args.Sum)),
		Avg: make(map[string]float64, len(args.Avg)),
	}
	dests := make([]any, 0, 1+len(args.Sum)+len(args.Avg))
	dests = append(dests, &result.Count)
	sums := make([]float64, len(args.Sum))
	for i := range sums {
		dests = append(dests, &sums[i])
	}
	avgs := make([]float64, len(args.Avg))
	for i := range avgs {
		dests = append(dests, &avgs[i])
	}
	if err := s.pool.QueryRow(ctx, query, params...).Scan(dests...); err != nil {
		return AggregateResult{}, err
	}
	for i, col := range args.Sum {
		result.Sum[col] = sums[i]
	}
	for i, col := range args.Avg {
		result.Avg[col] = avgs[i]
	}
	return result, nil
}

var _ Store = (*PGStore)(nil)
