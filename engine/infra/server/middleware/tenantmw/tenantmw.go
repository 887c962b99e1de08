package tenantmw

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kishore28kumar/pulss/engine/auth"
	"github.com/kishore28kumar/pulss/engine/infra/server/router"
	"github.com/kishore28kumar/pulss/engine/tenant"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

// maxBodySniff caps how much of a request body is read when looking for a
// tenant_id field.
const maxBodySniff = 1 << 20

// Middleware resolves the single authoritative tenant for each request and
// enforces tenant-level gates (active status, IP whitelist).
type Middleware struct {
	resolver *tenant.Resolver
	excluded map[string]struct{}
}

// NewMiddleware creates the tenant resolution middleware.
func NewMiddleware(resolver *tenant.Resolver, excludedPaths []string) *Middleware {
	excluded := make(map[string]struct{}, len(excludedPaths))
	for _, p := range excludedPaths {
		excluded[p] = struct{}{}
	}
	return &Middleware{resolver: resolver, excluded: excluded}
}

// Handler is the Gin middleware resolving and validating the tenant.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, skip := m.excluded[c.Request.URL.Path]; skip {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		candidates := tenant.Candidates{
			Host:       c.Request.Host,
			PathParam:  c.Param("tenant_id"),
			QueryParam: c.Query("tenant_id"),
			BodyField:  bodyTenantID(c),
		}
		if prin, ok := auth.GetPrincipal(c); ok {
			candidates.PrincipalTenant = prin.TenantID
			candidates.SuperAdmin = prin.SuperAdmin
		}
		resolved, err := m.resolver.Resolve(ctx, candidates)
		if err != nil {
			switch {
			case errors.Is(err, tenant.ErrIsolationViolation):
				log.With("path", c.Request.URL.Path).Warn("cross-tenant access attempt rejected")
				router.RespondError(c, router.ErrTenantIsolationCode, "Access to this tenant is not permitted")
			case errors.Is(err, tenant.ErrTenantRequired):
				router.RespondError(c, router.ErrTenantRequiredCode, "Tenant could not be determined")
			case errors.Is(err, tenant.ErrNotFound):
				router.RespondError(c, router.ErrTenantRequiredCode, "Tenant could not be determined")
			default:
				log.Error("tenant resolution failed", "error", err)
				router.RespondError(c, router.ErrInternalCode, "Tenant resolution unavailable")
			}
			return
		}
		if !resolved.IsActive() {
			log.With("tenant_id", resolved.ID, "status", resolved.Status).Debug("inactive tenant rejected")
			router.RespondError(c, router.ErrTenantRequiredCode, "Tenant is not active")
			return
		}
		if resolved.Flags.IPWhitelist && !resolved.AllowsIP(c.ClientIP()) {
			log.With("tenant_id", resolved.ID, "ip", c.ClientIP()).Warn("request from non-whitelisted IP")
			router.RespondError(c, router.ErrIPNotAllowedCode, "Source IP is not allowed for this tenant")
			return
		}
		c.Request = c.Request.WithContext(tenant.WithTenant(ctx, resolved))
		c.Next()
	}
}

// bodyTenantID extracts a top-level tenant_id field from a JSON request body
// without consuming it for downstream handlers.
func bodyTenantID(c *gin.Context) string {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return ""
	}
	if !strings.Contains(c.ContentType(), "application/json") {
		return ""
	}
	original := c.Request.Body
	raw, err := io.ReadAll(io.LimitReader(original, maxBodySniff))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), original))
	var envelope struct {
		TenantID string `json:"tenant_id"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	return envelope.TenantID
}
