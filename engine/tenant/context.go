package tenant

import (
	"context"

	"github.com/kishore28kumar/pulss/engine/core"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	contextKeyTenant   contextKey = "tenant"
	contextKeyTenantID contextKey = "tenant_id"
)

// WithTenant adds the resolved tenant to the context.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	ctx = context.WithValue(ctx, contextKeyTenant, t)
	return context.WithValue(ctx, contextKeyTenantID, t.ID)
}

// WithTenantID records the tenant ID alone, before the full tenant record has
// been loaded.
func WithTenantID(ctx context.Context, id core.ID) context.Context {
	return context.WithValue(ctx, contextKeyTenantID, id)
}

// FromContext retrieves the resolved tenant from context.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(contextKeyTenant).(*Tenant)
	return t, ok
}

// IDFromContext retrieves the authoritative tenant ID from context.
func IDFromContext(ctx context.Context) (core.ID, bool) {
	id, ok := ctx.Value(contextKeyTenantID).(core.ID)
	return id, ok
}
