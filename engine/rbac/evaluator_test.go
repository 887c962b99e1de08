package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/kishore28kumar/pulss/engine/auth/principal"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/engine/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRoleRepo struct {
	roles []*Role
	err   error
}

func (s *stubRoleRepo) ListRolesForPrincipal(context.Context, core.ID, core.ID) ([]*Role, error) {
	return s.roles, s.err
}

type stubFlags struct {
	flags tenant.FeatureFlags
	err   error
}

func (s *stubFlags) Flags(context.Context, core.ID) (tenant.FeatureFlags, error) {
	return s.flags, s.err
}

func activePrincipal() *principal.Principal {
	return &principal.Principal{
		ID:     core.MustNewID(),
		Type:   principal.TypeAdmin,
		Status: principal.StatusActive,
	}
}

func TestEvaluator_CheckPermission(t *testing.T) {
	ctx := context.Background()
	tenantID := core.MustNewID()

	t.Run("Should deny a nil principal", func(t *testing.T) {
		e := NewEvaluator(&stubRoleRepo{}, &stubFlags{})
		allowed, err := e.CheckPermission(ctx, nil, tenantID, "orders:read")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("Should allow super-admins unconditionally", func(t *testing.T) {
		e := NewEvaluator(&stubRoleRepo{err: errors.New("down")}, &stubFlags{err: errors.New("down")})
		p := activePrincipal()
		p.SuperAdmin = true
		allowed, err := e.CheckPermission(ctx, p, tenantID, "settings:delete")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Should deny with an error when flags cannot be resolved", func(t *testing.T) {
		e := NewEvaluator(&stubRoleRepo{}, &stubFlags{err: errors.New("store down")})
		allowed, err := e.CheckPermission(ctx, activePrincipal(), tenantID, "orders:read")
		require.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("Should deny with an error when roles cannot be resolved", func(t *testing.T) {
		e := NewEvaluator(
			&stubRoleRepo{err: errors.New("store down")},
			&stubFlags{flags: tenant.FeatureFlags{RBAC: true}},
		)
		allowed, err := e.CheckPermission(ctx, activePrincipal(), tenantID, "orders:read")
		require.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("Should grant on an exact role permission", func(t *testing.T) {
		e := NewEvaluator(
			&stubRoleRepo{roles: []*Role{{ID: core.MustNewID(), Permissions: []string{"orders:read"}}}},
			&stubFlags{flags: tenant.FeatureFlags{RBAC: true}},
		)
		allowed, err := e.CheckPermission(ctx, activePrincipal(), tenantID, "orders:read")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Should grant through the global and resource wildcards", func(t *testing.T) {
		e := NewEvaluator(
			&stubRoleRepo{roles: []*Role{{ID: core.MustNewID(), Permissions: []string{"*"}}}},
			&stubFlags{flags: tenant.FeatureFlags{RBAC: true}},
		)
		allowed, err := e.CheckPermission(ctx, activePrincipal(), tenantID, "anything:at-all")
		require.NoError(t, err)
		assert.True(t, allowed)

		e = NewEvaluator(
			&stubRoleRepo{roles: []*Role{{ID: core.MustNewID(), Permissions: []string{"orders:*"}}}},
			&stubFlags{flags: tenant.FeatureFlags{RBAC: true}},
		)
		allowed, err = e.CheckPermission(ctx, activePrincipal(), tenantID, "orders:delete")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Should union permissions across roles", func(t *testing.T) {
		e := NewEvaluator(
			&stubRoleRepo{roles: []*Role{
				{ID: core.MustNewID(), Permissions: []string{"orders:read"}},
				{ID: core.MustNewID(), Permissions: []string{"products:write"}},
			}},
			&stubFlags{flags: tenant.FeatureFlags{RBAC: true}},
		)
		allowed, err := e.CheckPermission(ctx, activePrincipal(), tenantID, "products:write")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Should ignore roles scoped to another tenant", func(t *testing.T) {
		otherTenant := core.MustNewID()
		e := NewEvaluator(
			&stubRoleRepo{roles: []*Role{
				{ID: core.MustNewID(), TenantID: &otherTenant, Permissions: []string{"orders:read"}},
			}},
			&stubFlags{flags: tenant.FeatureFlags{RBAC: true}},
		)
		allowed, err := e.CheckPermission(ctx, activePrincipal(), tenantID, "orders:read")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("Should fall back to the legacy mapping when RBAC is off", func(t *testing.T) {
		e := NewEvaluator(
			&stubRoleRepo{err: errors.New("must not be called")},
			&stubFlags{flags: tenant.FeatureFlags{RBAC: false}},
		)
		p := activePrincipal()
		p.LegacyRole = "staff"
		allowed, err := e.CheckPermission(ctx, p, tenantID, "orders:update")
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = e.CheckPermission(ctx, p, tenantID, "billing:read")
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}

func TestEvaluator_RequirePermission(t *testing.T) {
	ctx := context.Background()
	tenantID := core.MustNewID()

	t.Run("Should return ErrPermissionDenied when not granted", func(t *testing.T) {
		e := NewEvaluator(
			&stubRoleRepo{},
			&stubFlags{flags: tenant.FeatureFlags{RBAC: true}},
		)
		err := e.RequirePermission(ctx, activePrincipal(), tenantID, "orders:read")
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestEvaluator_CheckAnyAll(t *testing.T) {
	ctx := context.Background()
	tenantID := core.MustNewID()
	e := NewEvaluator(
		&stubRoleRepo{roles: []*Role{{ID: core.MustNewID(), Permissions: []string{"orders:read"}}}},
		&stubFlags{flags: tenant.FeatureFlags{RBAC: true}},
	)

	t.Run("Should grant any when one matches", func(t *testing.T) {
		allowed, err := e.CheckAnyPermission(ctx, activePrincipal(), tenantID, "billing:read", "orders:read")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Should deny all when one is missing", func(t *testing.T) {
		allowed, err := e.CheckAllPermissions(ctx, activePrincipal(), tenantID, "orders:read", "billing:read")
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}

func TestLegacyAllows(t *testing.T) {
	t.Run("Should map coarse roles to resource prefixes", func(t *testing.T) {
		assert.True(t, LegacyAllows("admin", "settings:update"))
		assert.True(t, LegacyAllows("viewer", "reports:read"))
		assert.False(t, LegacyAllows("viewer", "orders:read"))
		assert.False(t, LegacyAllows("unknown-role", "orders:read"))
	})
}

func TestResourceOf(t *testing.T) {
	t.Run("Should split permission names on the first colon", func(t *testing.T) {
		assert.Equal(t, "orders", ResourceOf("orders:read"))
		assert.Equal(t, "orders", ResourceOf("orders"))
		assert.Equal(t, "read", ActionOf("orders:read"))
		assert.Empty(t, ActionOf("orders"))
	})
}
