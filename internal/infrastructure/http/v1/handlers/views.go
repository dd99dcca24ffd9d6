package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crmforge/internal/core/apperror"
	appctx "crmforge/internal/core/context"
	"crmforge/internal/core/id"
	"crmforge/internal/infrastructure/http/v1/dto"
	"crmforge/internal/metadata"
	"crmforge/internal/views"
)

// ViewsHandler manages per-user saved list views.
type ViewsHandler struct {
	*BaseHandler
	service  *views.Service
	registry *metadata.Registry
}

// NewViewsHandler creates a views handler.
func NewViewsHandler(base *BaseHandler, service *views.Service, registry *metadata.Registry) *ViewsHandler {
	return &ViewsHandler{
		BaseHandler: base,
		service:     service,
		registry:    registry,
	}
}

// scope resolves the caller's view scope from the path and user context.
func (h *ViewsHandler) scope(c *gin.Context) (views.Scope, bool) {
	module := c.Param("module")
	if _, ok := h.registry.Get(module); !ok {
		h.Error(c, apperror.NewNotFound("module", module))
		return views.Scope{}, false
	}

	userID, err := id.Parse(appctx.GetUserID(c.Request.Context()))
	if err != nil {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return views.Scope{}, false
	}
	return views.Scope{UserID: userID, Module: module}, true
}

// List handles GET /modules/:module/views
func (h *ViewsHandler) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	viewSet, err := h.service.List(c.Request.Context(), scope)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ViewResponse, 0, len(viewSet))
	for _, v := range viewSet {
		items = append(items, dto.FromView(v))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Save handles PUT /modules/:module/views
func (h *ViewsHandler) Save(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	var req dto.SaveViewRequest
	if !h.BindJSON(c, &req) {
		return
	}

	view, err := req.ToView()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid view id").WithDetail("error", err.Error()))
		return
	}

	saved, err := h.service.Save(c.Request.Context(), scope, view)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromView(saved))
}

// Delete handles DELETE /modules/:module/views/:id
func (h *ViewsHandler) Delete(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	viewID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid view id").WithDetail("id", c.Param("id")))
		return
	}

	if err := h.service.Delete(c.Request.Context(), scope, viewID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers saved view routes.
func (h *ViewsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/modules/:module/views", h.List)
	rg.PUT("/modules/:module/views", h.Save)
	rg.DELETE("/modules/:module/views/:id", h.Delete)
}
