package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/engine/tenant"
)

// DBInterface defines the minimal interface needed by the repositories
type DBInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TenantRepository implements the tenant repository interface using PostgreSQL
type TenantRepository struct {
	db DBInterface
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db DBInterface) *TenantRepository {
	return &TenantRepository{db: db}
}

var tenantColumns = []string{
	"id", "name", "slug", "status", "ip_whitelist",
	"flag_rbac", "flag_rate_limiting", "flag_ip_whitelist",
	"flag_geo_fencing", "flag_audit_logging", "flag_api_keys",
	"created_at", "updated_at",
}

type tenantRow struct {
	ID               core.ID   `db:"id"`
	Name             string    `db:"name"`
	Slug             string    `db:"slug"`
	Status           string    `db:"status"`
	IPWhitelist      []string  `db:"ip_whitelist"`
	FlagRBAC         bool      `db:"flag_rbac"`
	FlagRateLimiting bool      `db:"flag_rate_limiting"`
	FlagIPWhitelist  bool      `db:"flag_ip_whitelist"`
	FlagGeoFencing   bool      `db:"flag_geo_fencing"`
	FlagAuditLogging bool      `db:"flag_audit_logging"`
	FlagAPIKeys      bool      `db:"flag_api_keys"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (row *tenantRow) toDomain() *tenant.Tenant {
	return &tenant.Tenant{
		ID:     row.ID,
		Name:   row.Name,
		Slug:   row.Slug,
		Status: tenant.Status(row.Status),
		Flags: tenant.FeatureFlags{
			RBAC:         row.FlagRBAC,
			RateLimiting: row.FlagRateLimiting,
			IPWhitelist:  row.FlagIPWhitelist,
			GeoFencing:   row.FlagGeoFencing,
			AuditLogging: row.FlagAuditLogging,
			APIKeys:      row.FlagAPIKeys,
		},
		IPWhitelist: row.IPWhitelist,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// GetByID retrieves a tenant together with its feature flags
func (r *TenantRepository) GetByID(ctx context.Context, id core.ID) (*tenant.Tenant, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetBySlug retrieves a tenant by its subdomain slug
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return r.getOne(ctx, squirrel.Eq{"slug": slug})
}

func (r *TenantRepository) getOne(ctx context.Context, pred squirrel.Eq) (*tenant.Tenant, error) {
	query, args, err := squirrel.Select(tenantColumns...).
		From("tenants").
		Where(pred).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var row tenantRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, tenant.ErrNotFound
		}
		return nil, fmt.Errorf("scanning tenant: %w", err)
	}
	return row.toDomain(), nil
}

// Flags answers feature-flag lookups for the RBAC evaluator and the rate
// limiter without loading callers onto the full tenant model.
func (r *TenantRepository) Flags(ctx context.Context, tenantID core.ID) (tenant.FeatureFlags, error) {
	t, err := r.GetByID(ctx, tenantID)
	if err != nil {
		return tenant.FeatureFlags{}, err
	}
	return t.Flags, nil
}
