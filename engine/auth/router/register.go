package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kishore28kumar/pulss/engine/auth"
	"github.com/kishore28kumar/pulss/engine/auth/uc"
	"github.com/kishore28kumar/pulss/engine/rbac"
)

// RegisterRoutes registers credential management routes. The surrounding
// pipeline middleware (auth, tenant, audit) is attached at the server level.
// Each route runs its permission check first and the per-credential rate
// limiter second, so a denied request never consumes window budget. A nil
// limit disables per-credential limiting.
func RegisterRoutes(apiBase *gin.RouterGroup, factory *uc.Factory, evaluator *rbac.Evaluator, limit gin.HandlerFunc) {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	handler := NewHandler(factory)
	keys := apiBase.Group("/keys")
	{
		keys.POST("", auth.RequirePermission(evaluator, "api_keys:create"), limit, handler.GenerateKey)
		keys.GET("", auth.RequirePermission(evaluator, "api_keys:read"), limit, handler.ListKeys)
		keys.DELETE("/:id", auth.RequirePermission(evaluator, "api_keys:delete"), limit, handler.RevokeKey)
	}
}
