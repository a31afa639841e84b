package users

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cbamflow/cbamflow/internal/authz"
	"github.com/cbamflow/cbamflow/internal/shared"
)

// ErrEmailTaken indicates the e-mail address is already in use.
var ErrEmailTaken = errors.New("users: email already registered")

// Changes carries partial updates; nil fields are left untouched.
type Changes struct {
	Name     *string
	Email    *string
	Role     *authz.Role
	IsActive *bool
}

// Repository defines persistence for user administration.
type Repository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, account *Account, passwordHash string) error
	Update(ctx context.Context, id string, changes Changes) error
	Delete(ctx context.Context, id string) error
	GetTenant(ctx context.Context, tenantID string) (*TenantProfile, error)
	RenameTenant(ctx context.Context, tenantID, name string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, name, email, role, COALESCE(tenant_id, ''), is_active, last_login_at, created_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		account Account
		role    string
	)
	err := row.Scan(&account.ID, &account.Name, &account.Email, &role, &account.TenantID, &account.IsActive, &account.LastLoginAt, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	account.Role = authz.Role(role)
	return &account, nil
}

// ListByTenant returns the tenant's users, newest first.
func (r *PGRepository) ListByTenant(ctx context.Context, tenantID string) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM users WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var (
			account Account
			role    string
		)
		if err := rows.Scan(&account.ID, &account.Name, &account.Email, &role, &account.TenantID, &account.IsActive, &account.LastLoginAt, &account.CreatedAt); err != nil {
			return nil, err
		}
		account.Role = authz.Role(role)
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// FindByID fetches a single user.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	return scanAccount(row)
}

// Create persists a new account with the given password hash.
func (r *PGRepository) Create(ctx context.Context, account *Account, passwordHash string) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, tenant_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $8)`,
		account.ID, account.Name, account.Email, passwordHash, string(account.Role), account.TenantID, account.IsActive, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	account.CreatedAt = now
	return nil
}

// Update applies partial changes to a user.
func (r *PGRepository) Update(ctx context.Context, id string, changes Changes) error {
	set := "updated_at = now()"
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		set += ", " + column + " = $" + strconv.Itoa(len(args))
	}
	if changes.Name != nil {
		add("name", *changes.Name)
	}
	if changes.Email != nil {
		add("email", *changes.Email)
	}
	if changes.Role != nil {
		add("role", string(*changes.Role))
	}
	if changes.IsActive != nil {
		add("is_active", *changes.IsActive)
	}

	tag, err := r.pool.Exec(ctx, `UPDATE users SET `+set+` WHERE id = $1`, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a user permanently.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetTenant fetches the organisation profile.
func (r *PGRepository) GetTenant(ctx context.Context, tenantID string) (*TenantProfile, error) {
	var profile TenantProfile
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, domain, is_active FROM tenants WHERE id = $1`, tenantID)
	err := row.Scan(&profile.ID, &profile.Name, &profile.Slug, &profile.Domain, &profile.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// RenameTenant updates the organisation display name.
func (r *PGRepository) RenameTenant(ctx context.Context, tenantID, name string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tenants SET name = $2, updated_at = now() WHERE id = $1`, tenantID, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
