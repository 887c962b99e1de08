package server

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kishore28kumar/pulss/engine/infra/monitoring"
	"github.com/kishore28kumar/pulss/pkg/config"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

// LoggerMiddleware logs HTTP request details and attaches the logger to the
// request context for downstream stages.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), log))
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}
		monitoring.RequestDuration.
			WithLabelValues(c.Request.Method, strconv.Itoa(status)).
			Observe(latency.Seconds())
		log.Info("Request completed",
			"latency", latency,
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"status_code", status,
			"body_size", c.Writer.Size(),
			"path", path,
			"error", c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}

// CORSMiddleware enables CORS support with configurable origins.
func CORSMiddleware(corsConfig config.CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		isAllowed := false
		for _, allowed := range corsConfig.AllowedOrigins {
			if origin == allowed {
				isAllowed = true
				break
			}
		}
		if isAllowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			if corsConfig.AllowCredentials {
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, "+
				"Authorization, accept, origin, Cache-Control, X-Requested-With",
		)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if corsConfig.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", corsConfig.MaxAge))
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
