// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "crmforge/internal/core/context"
	"crmforge/pkg/logger"
)

// UserContext enriches the request-scoped logger with the authenticated
// user's identity so every log line downstream carries user_id and
// tenant_id.
//
// This middleware must run AFTER Auth middleware, which populates the
// user context.
//
// Usage in router:
//
//	protected.Use(middleware.Auth(cfg.JWTValidator))
//	protected.Use(middleware.UserContext())
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		if user != nil {
			log := logger.FromContext(c.Request.Context()).With(
				"user_id", user.UserID,
				"tenant_id", user.TenantID,
			)
			ctx := logger.WithLogger(c.Request.Context(), log)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
