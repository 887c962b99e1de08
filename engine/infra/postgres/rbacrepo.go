package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/engine/rbac"
)

// RBACRepository implements the role repository interface using PostgreSQL
type RBACRepository struct {
	db DBInterface
}

// NewRBACRepository creates a new role repository
func NewRBACRepository(db DBInterface) rbac.Repository {
	return &RBACRepository{db: db}
}

// ListRolesForPrincipal retrieves all roles the principal holds within the
// tenant, including system roles assigned to it. Roles scoped to other
// tenants are excluded at the query level.
func (r *RBACRepository) ListRolesForPrincipal(
	ctx context.Context,
	tenantID, principalID core.ID,
) ([]*rbac.Role, error) {
	query, args, err := squirrel.
		Select("r.id", "r.tenant_id", "r.name", "r.permissions", "r.created_at").
		From("roles r").
		Join("principal_roles pr ON pr.role_id = r.id").
		Where(squirrel.Eq{"pr.principal_id": principalID}).
		Where(squirrel.Or{
			squirrel.Eq{"r.tenant_id": tenantID},
			squirrel.Eq{"r.tenant_id": nil},
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var roles []*rbac.Role
	if err := pgxscan.Select(ctx, r.db, &roles, query, args...); err != nil {
		return nil, fmt.Errorf("scanning roles: %w", err)
	}
	return roles, nil
}
