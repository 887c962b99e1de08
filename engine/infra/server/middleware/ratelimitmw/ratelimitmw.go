package ratelimitmw

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kishore28kumar/pulss/engine/auth"
	"github.com/kishore28kumar/pulss/engine/infra/monitoring"
	"github.com/kishore28kumar/pulss/engine/infra/server/router"
	"github.com/kishore28kumar/pulss/engine/ratelimit"
	"github.com/kishore28kumar/pulss/engine/tenant"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

// Middleware enforces per-credential multi-window rate limits after
// authentication has attached the credential to the request context.
type Middleware struct {
	limiter  *ratelimit.Limiter
	flags    tenant.FlagSource
	excluded map[string]struct{}
}

// NewMiddleware creates the rate limiting middleware.
func NewMiddleware(limiter *ratelimit.Limiter, flags tenant.FlagSource, excludedPaths []string) *Middleware {
	excluded := make(map[string]struct{}, len(excludedPaths))
	for _, p := range excludedPaths {
		excluded[p] = struct{}{}
	}
	return &Middleware{limiter: limiter, flags: flags, excluded: excluded}
}

// Handler is the Gin middleware enforcing the credential's window budgets.
// Requests without a credential pass through: the global IP limiter covers
// unauthenticated traffic.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, skip := m.excluded[c.Request.URL.Path]; skip {
			c.Next()
			return
		}
		cred, ok := auth.GetCredential(c)
		if !ok {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		// Tenants can switch enforcement off per feature flag. Platform-level
		// keys are always limited.
		if cred.TenantID != nil {
			flags, err := m.flags.Flags(ctx, *cred.TenantID)
			if err == nil && !flags.RateLimiting {
				c.Next()
				return
			}
		}
		result, err := m.limiter.Allow(ctx, cred.ID, cred.Limits)
		if err != nil {
			logger.FromContext(ctx).Error("rate limiter failed", "credential_id", cred.ID, "error", err)
			router.RespondError(c, router.ErrInternalCode, "Rate limiting unavailable")
			return
		}
		writeHeaders(c, result)
		if !result.Allowed {
			for _, w := range result.FailedWindows {
				monitoring.RateLimitDecisions.WithLabelValues("rejected", string(w)).Inc()
			}
			c.Header("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()), 10))
			router.RespondError(c, router.ErrRateLimitCode, "Rate limit exceeded")
			return
		}
		monitoring.RateLimitDecisions.WithLabelValues("allowed", "all").Inc()
		c.Next()
	}
}

// writeHeaders emits X-RateLimit-Limit-<Window> and X-RateLimit-Remaining-<Window>
// for every window with a configured budget.
func writeHeaders(c *gin.Context, result *ratelimit.Result) {
	for _, w := range ratelimit.Windows {
		limit, ok := result.Limits[w]
		if !ok {
			continue
		}
		suffix := headerSuffix(w)
		c.Header(fmt.Sprintf("X-RateLimit-Limit-%s", suffix), strconv.FormatInt(limit, 10))
		c.Header(fmt.Sprintf("X-RateLimit-Remaining-%s", suffix), strconv.FormatInt(result.Remaining[w], 10))
	}
}

func headerSuffix(w ratelimit.Window) string {
	switch w {
	case ratelimit.WindowMinute:
		return "Minute"
	case ratelimit.WindowHour:
		return "Hour"
	case ratelimit.WindowDay:
		return "Day"
	case ratelimit.WindowMonth:
		return "Month"
	}
	return string(w)
}
