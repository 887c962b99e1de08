package tenant

import (
	"context"
	"errors"

	"github.com/kishore28kumar/pulss/engine/core"
)

// ErrNotFound is returned when no tenant matches the lookup.
var ErrNotFound = errors.New("tenant not found")

// Repository defines the interface for tenant data access.
type Repository interface {
	// GetByID retrieves a tenant together with its feature flags.
	GetByID(ctx context.Context, id core.ID) (*Tenant, error)
	// GetBySlug retrieves a tenant by its subdomain slug.
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
}

// FlagSource answers feature-flag lookups for a tenant. Implemented by
// Repository-backed services; kept narrow so the RBAC evaluator and the
// rate limiter do not depend on the full tenant model.
type FlagSource interface {
	Flags(ctx context.Context, tenantID core.ID) (FeatureFlags, error)
}
