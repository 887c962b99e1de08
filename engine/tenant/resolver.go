package tenant

import (
	"context"
	"errors"
	"strings"

	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

var (
	// ErrTenantRequired is returned when no tenant could be resolved for a
	// request that needs one.
	ErrTenantRequired = errors.New("tenant required")
	// ErrIsolationViolation is returned when a request explicitly addresses a
	// tenant the principal does not belong to.
	ErrIsolationViolation = errors.New("tenant isolation violation")
)

// Candidates carries every tenant hint a request exposes, in resolution
// priority order. Zero values mean the signal is absent.
type Candidates struct {
	// PrincipalTenant is the authenticated principal's own tenant. Nil for
	// super-admin / platform-level principals.
	PrincipalTenant *core.ID
	// SuperAdmin marks a principal allowed to act across tenants.
	SuperAdmin bool
	// Host is the request Host header, e.g. "acme.pulss.io".
	Host string
	// PathParam is the tenant_id path parameter.
	PathParam string
	// QueryParam is the tenant_id query parameter.
	QueryParam string
	// BodyField is the tenant_id body field.
	BodyField string
}

// Resolver determines the single authoritative tenant for a request.
type Resolver struct {
	repo Repository
	// baseDomain strips the platform suffix when extracting subdomain slugs,
	// e.g. "pulss.io" turns "acme.pulss.io" into "acme".
	baseDomain string
}

// NewResolver creates a tenant resolver.
func NewResolver(repo Repository, baseDomain string) *Resolver {
	return &Resolver{repo: repo, baseDomain: baseDomain}
}

// Resolve produces exactly one authoritative tenant, or an error.
//
// Priority: (1) the non-super-admin principal's own tenant always wins and
// client-supplied values are informational only; (2) host subdomain; (3) path
// parameter; (4) query parameter; (5) body field. A non-super-admin principal
// whose own tenant conflicts with an explicit path-parameter claim is treated
// as a cross-tenant access attempt and rejected; query and body conflicts are
// overwritten silently. Super-admins may act on any client-supplied tenant.
func (r *Resolver) Resolve(ctx context.Context, c Candidates) (*Tenant, error) {
	log := logger.FromContext(ctx)
	if c.PrincipalTenant != nil && !c.SuperAdmin {
		if c.PathParam != "" && c.PathParam != c.PrincipalTenant.String() {
			log.Warn("cross-tenant access attempt",
				"principal_tenant", c.PrincipalTenant.String(),
				"claimed_tenant", c.PathParam,
			)
			return nil, ErrIsolationViolation
		}
		if other := c.QueryParam; other != "" && other != c.PrincipalTenant.String() {
			log.Debug("overriding client-supplied tenant with principal tenant",
				"claimed_tenant", other)
		}
		return r.lookupByID(ctx, c.PrincipalTenant.String())
	}
	if slug := r.subdomainSlug(c.Host); slug != "" {
		t, err := r.repo.GetBySlug(ctx, slug)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	for _, claimed := range []string{c.PathParam, c.QueryParam, c.BodyField} {
		if claimed != "" {
			return r.lookupByID(ctx, claimed)
		}
	}
	return nil, ErrTenantRequired
}

func (r *Resolver) lookupByID(ctx context.Context, raw string) (*Tenant, error) {
	id, err := core.ParseID(raw)
	if err != nil {
		return nil, ErrTenantRequired
	}
	t, err := r.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTenantRequired
	}
	return t, err
}

// subdomainSlug extracts the tenant slug from the request host, or "".
func (r *Resolver) subdomainSlug(host string) string {
	if host == "" || r.baseDomain == "" {
		return ""
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	suffix := "." + r.baseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	slug := strings.TrimSuffix(host, suffix)
	// Nested subdomains are not tenant hints.
	if slug == "" || strings.Contains(slug, ".") {
		return ""
	}
	return slug
}
