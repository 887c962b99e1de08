package ratelimitmw

import (
	"github.com/gin-gonic/gin"
	"github.com/kishore28kumar/pulss/pkg/config"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// GlobalIPLimit caps unauthenticated traffic per client IP before any
// credential work happens. It uses an in-process store: the cap is per
// instance and coarse on purpose, the per-credential windows are the
// authoritative budget.
func GlobalIPLimit(cfg config.RateConfig) gin.HandlerFunc {
	if cfg.Disabled || cfg.Limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	rate := limiter.Rate{Period: cfg.Period, Limit: cfg.Limit}
	instance := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(instance)
}
