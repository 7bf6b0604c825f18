package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waterworks/servicedesk/internal/domain"
)

// CustomerRepository is the read-mostly adapter onto the external
// customer identity store. The service desk core reads it for display
// names, notification addresses and login verification.
type CustomerRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*domain.Customer, error)
}

// StaffRepository is the read-mostly adapter onto the staff directory.
type StaffRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Staff, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*domain.Staff, error)
	ListActiveByRoles(ctx context.Context, tenantID string, roles []domain.StaffRole) ([]domain.Staff, error)
}

// AssetRepository resolves read-only references into the external
// infrastructure inventory.
type AssetRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.AssetRef, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository builds the postgres-backed adapter.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const customerColumns = `id, tenant_id, email, first_name, last_name, phone, account_number,
       password_hash, is_verified, created_at, updated_at`

func (r *customerRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE tenant_id=$1 AND id=$2`
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *customerRepository) GetByEmail(ctx context.Context, tenantID, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE tenant_id=$1 AND email=$2`
	return r.fetchSingle(ctx, query, tenantID, email)
}

func (r *customerRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&customer.ID,
		&customer.TenantID,
		&customer.Email,
		&customer.FirstName,
		&customer.LastName,
		&customer.Phone,
		&customer.AccountNumber,
		&customer.PasswordHash,
		&customer.IsVerified,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository builds the postgres-backed adapter.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, tenant_id, email, name, role, password_hash, active, created_at, updated_at`

func (r *staffRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE tenant_id=$1 AND id=$2`
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *staffRepository) GetByEmail(ctx context.Context, tenantID, email string) (*domain.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE tenant_id=$1 AND email=$2`
	return r.fetchSingle(ctx, query, tenantID, email)
}

func (r *staffRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Staff, error) {
	var staff domain.Staff
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&staff.ID,
		&staff.TenantID,
		&staff.Email,
		&staff.Name,
		&staff.Role,
		&staff.PasswordHash,
		&staff.Active,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) ListActiveByRoles(ctx context.Context, tenantID string, roles []domain.StaffRole) ([]domain.Staff, error) {
	roleVals := make([]string, len(roles))
	for i, role := range roles {
		roleVals[i] = string(role)
	}
	rows, err := r.pool.Query(ctx, `
        SELECT `+staffColumns+` FROM staff
        WHERE tenant_id=$1 AND active = TRUE AND role = ANY($2)
        ORDER BY created_at ASC`, tenantID, roleVals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Staff
	for rows.Next() {
		var staff domain.Staff
		if err := rows.Scan(
			&staff.ID,
			&staff.TenantID,
			&staff.Email,
			&staff.Name,
			&staff.Role,
			&staff.PasswordHash,
			&staff.Active,
			&staff.CreatedAt,
			&staff.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}

type assetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository builds the postgres-backed adapter.
func NewAssetRepository(pool *pgxpool.Pool) AssetRepository {
	return &assetRepository{pool: pool}
}

func (r *assetRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.AssetRef, error) {
	var asset domain.AssetRef
	var lat, lon *float64
	err := r.pool.QueryRow(ctx, `
        SELECT id, asset_code, name, asset_type, latitude, longitude
        FROM assets WHERE tenant_id=$1 AND id=$2`, tenantID, id).Scan(
		&asset.ID,
		&asset.AssetCode,
		&asset.Name,
		&asset.AssetType,
		&lat,
		&lon,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lat != nil && lon != nil {
		asset.Location = &domain.GeoPoint{Latitude: *lat, Longitude: *lon}
	}
	return &asset, nil
}
