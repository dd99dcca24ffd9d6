// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"crmforge/internal/infrastructure/http/v1/middleware"
)

// RecordRouteHandler defines the interface for module record handlers.
type RecordRouteHandler interface {
	List(c *gin.Context)
	Query(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Remove(c *gin.Context)
	BulkRemove(c *gin.Context)
}

// RegisterRecordRoutes registers the standard record CRUD routes under
// /modules/:module/records with per-action permissions.
//
// Usage:
//
//	handler := handlers.NewRecordsHandler(baseHandler, recordsService, registry)
//	RegisterRecordRoutes(protected, handler, "records")
func RegisterRecordRoutes(rg *gin.RouterGroup, handler RecordRouteHandler, permission string) {
	group := rg.Group("/modules/:module/records")
	group.GET("", middleware.RequirePermission(permission+":read"), handler.List)
	group.POST("/query", middleware.RequirePermission(permission+":read"), handler.Query)
	group.GET("/:id", middleware.RequirePermission(permission+":read"), handler.Get)
	group.POST("", middleware.RequirePermission(permission+":create"), handler.Create)
	group.PUT("/:id", middleware.RequirePermission(permission+":update"), handler.Update)
	group.DELETE("/:id", middleware.RequirePermission(permission+":delete"), handler.Remove)
	group.POST("/bulk-remove", middleware.RequirePermission(permission+":delete"), handler.BulkRemove)
}
