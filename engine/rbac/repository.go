package rbac

import (
	"context"

	"github.com/kishore28kumar/pulss/engine/core"
)

// Repository defines the interface for role and permission data access.
type Repository interface {
	// ListRolesForPrincipal retrieves all roles the principal holds within the
	// tenant, including system roles assigned to it.
	ListRolesForPrincipal(ctx context.Context, tenantID, principalID core.ID) ([]*Role, error)
}
