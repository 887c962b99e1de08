package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/kishore28kumar/pulss/engine/auth/principal"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/engine/tenant"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

// ErrPermissionDenied is returned when a required permission is not granted.
var ErrPermissionDenied = errors.New("permission denied")

// Evaluator answers allow/deny for a required permission. Deny is the default
// for any unresolved or erroring case: unlike the rate limiter, authorization
// fails closed.
type Evaluator struct {
	repo  Repository
	flags tenant.FlagSource
}

// NewEvaluator creates a permission evaluator.
func NewEvaluator(repo Repository, flags tenant.FlagSource) *Evaluator {
	return &Evaluator{repo: repo, flags: flags}
}

// CheckPermission verifies if a principal has a specific permission within a
// tenant. Super-admins are allowed unconditionally; with the tenant's RBAC
// flag off, the legacy resource-prefix table is consulted instead of roles.
func (e *Evaluator) CheckPermission(
	ctx context.Context,
	p *principal.Principal,
	tenantID core.ID,
	permission string,
) (bool, error) {
	if p == nil {
		return false, nil
	}
	if p.SuperAdmin {
		return true, nil
	}
	flags, err := e.flags.Flags(ctx, tenantID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to resolve tenant flags, denying",
			"tenant_id", tenantID, "error", err)
		return false, fmt.Errorf("failed to resolve tenant flags: %w", err)
	}
	if !flags.RBAC {
		return LegacyAllows(p.LegacyRole, permission), nil
	}
	roles, err := e.repo.ListRolesForPrincipal(ctx, tenantID, p.ID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to resolve roles, denying",
			"principal_id", p.ID, "tenant_id", tenantID, "error", err)
		return false, fmt.Errorf("failed to resolve roles: %w", err)
	}
	return permissionGranted(roles, tenantID, permission), nil
}

// permissionGranted unions the permission sets of all roles held within the
// tenant and checks exact name or wildcard coverage.
func permissionGranted(roles []*Role, tenantID core.ID, permission string) bool {
	resource := ResourceOf(permission)
	for _, role := range roles {
		if !role.AssignableIn(tenantID) {
			continue
		}
		for _, granted := range role.Permissions {
			switch granted {
			case permission, "*", resource + ":*":
				return true
			}
		}
	}
	return false
}

// RequirePermission checks permission and returns ErrPermissionDenied when not
// granted.
func (e *Evaluator) RequirePermission(
	ctx context.Context,
	p *principal.Principal,
	tenantID core.ID,
	permission string,
) error {
	allowed, err := e.CheckPermission(ctx, p, tenantID, permission)
	if err != nil {
		return fmt.Errorf("failed to check permission: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

// CheckAnyPermission verifies if the principal has any of the permissions,
// short-circuiting on the first grant.
func (e *Evaluator) CheckAnyPermission(
	ctx context.Context,
	p *principal.Principal,
	tenantID core.ID,
	permissions ...string,
) (bool, error) {
	for _, permission := range permissions {
		allowed, err := e.CheckPermission(ctx, p, tenantID, permission)
		if err != nil {
			return false, fmt.Errorf("failed to check permission %s: %w", permission, err)
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}

// CheckAllPermissions verifies if the principal has every permission,
// short-circuiting on the first denial.
func (e *Evaluator) CheckAllPermissions(
	ctx context.Context,
	p *principal.Principal,
	tenantID core.ID,
	permissions ...string,
) (bool, error) {
	for _, permission := range permissions {
		allowed, err := e.CheckPermission(ctx, p, tenantID, permission)
		if err != nil {
			return false, fmt.Errorf("failed to check permission %s: %w", permission, err)
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}
