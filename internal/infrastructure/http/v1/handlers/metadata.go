package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crmforge/internal/core/apperror"
	"crmforge/internal/core/tenant"
	"crmforge/internal/infrastructure/cache"
	"crmforge/internal/infrastructure/http/v1/dto"
	"crmforge/internal/infrastructure/storage/postgres/metadata_repo"
	"crmforge/internal/metadata"
	"crmforge/pkg/logger"
)

// MetadataHandler exposes the schema surface: modules, field definitions,
// layouts and form definitions. Reads go through the schema cache, writes
// through the repository followed by a NOTIFY so every instance invalidates.
type MetadataHandler struct {
	*BaseHandler
	registry *metadata.Registry
	source   metadata.Source
	repo     *metadata_repo.Repo
	cache    *cache.SchemaCache
}

// NewMetadataHandler creates a metadata handler.
func NewMetadataHandler(base *BaseHandler, registry *metadata.Registry, source metadata.Source, repo *metadata_repo.Repo, schemaCache *cache.SchemaCache) *MetadataHandler {
	return &MetadataHandler{
		BaseHandler: base,
		registry:    registry,
		source:      source,
		repo:        repo,
		cache:       schemaCache,
	}
}

func (h *MetadataHandler) module(c *gin.Context) (string, bool) {
	name := c.Param("module")
	if _, ok := h.registry.Get(name); !ok {
		h.Error(c, apperror.NewNotFound("module", name))
		return "", false
	}
	return name, true
}

// notifyChange publishes the invalidation; failure is logged, not fatal,
// because the write itself already succeeded.
func (h *MetadataHandler) notifyChange(c *gin.Context, channel, module string) {
	if err := h.cache.Publish(c.Request.Context(), channel, module); err != nil {
		logger.Warn(c.Request.Context(), "schema change notify failed",
			"channel", channel,
			"module", module,
			"error", err,
		)
	}
}

// ListModules handles GET /metadata/modules
func (h *MetadataHandler) ListModules(c *gin.Context) {
	defs := h.registry.List()
	items := make([]dto.ModuleResponse, 0, len(defs))
	for _, def := range defs {
		items = append(items, dto.FromModuleDef(def))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetFields handles GET /metadata/modules/:module/fields
func (h *MetadataHandler) GetFields(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	system, custom, err := h.source.GetFieldsForModule(ctx, module)
	if err != nil {
		h.Error(c, err)
		return
	}

	viewType := metadata.ViewType(c.DefaultQuery("viewType", string(metadata.ViewDetail)))
	layout, err := h.source.GetActiveLayout(ctx, module, viewType)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FieldsResponse{
		Module:  module,
		System:  system,
		Custom:  custom,
		Ordered: metadata.ResolveOrder(system, custom, layout),
	})
}

// CreateField handles POST /metadata/modules/:module/fields
func (h *MetadataHandler) CreateField(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	var req dto.SaveFieldRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if t := tenant.GetTenant(ctx); t != nil {
		if limit := t.CustomFieldLimit(); limit > 0 {
			_, custom, err := h.source.GetFieldsForModule(ctx, module)
			if err != nil {
				h.Error(c, err)
				return
			}
			if len(custom) >= limit {
				h.Error(c, apperror.NewValidation("custom field limit reached").
					WithDetail("module", module).
					WithDetail("limit", limit))
				return
			}
		}
	}

	field, err := h.repo.CreateField(ctx, module, req.RawField)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.notifyChange(c, "schema_changed", module)
	c.JSON(http.StatusCreated, field)
}

// UpdateField handles PUT /metadata/modules/:module/fields/:apiName
func (h *MetadataHandler) UpdateField(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	var req dto.SaveFieldRequest
	if !h.BindJSON(c, &req) {
		return
	}

	field, err := h.repo.UpdateField(c.Request.Context(), module, c.Param("apiName"), req.RawField)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.notifyChange(c, "schema_changed", module)
	c.JSON(http.StatusOK, field)
}

// DeleteField handles DELETE /metadata/modules/:module/fields/:apiName
func (h *MetadataHandler) DeleteField(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	if err := h.repo.DeleteField(c.Request.Context(), module, c.Param("apiName")); err != nil {
		h.Error(c, err)
		return
	}

	h.notifyChange(c, "schema_changed", module)
	h.NoContent(c)
}

// GetLayout handles GET /metadata/modules/:module/layouts/:viewType
func (h *MetadataHandler) GetLayout(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	layout, err := h.source.GetActiveLayout(c.Request.Context(), module, metadata.ViewType(c.Param("viewType")))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LayoutResponse{Layout: layout})
}

// SaveLayout handles PUT /metadata/modules/:module/layouts
func (h *MetadataHandler) SaveLayout(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	var req dto.SaveLayoutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	layout := metadata.Layout{
		Module:   module,
		ViewType: metadata.ViewType(req.ViewType),
		Sections: req.Sections,
	}
	if err := h.repo.SaveLayout(c.Request.Context(), layout); err != nil {
		h.Error(c, err)
		return
	}

	h.notifyChange(c, "layouts_changed", module)
	h.OK(c, layout)
}

// GetFormDefinition handles GET /metadata/modules/:module/forms/:formId
func (h *MetadataHandler) GetFormDefinition(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	form, err := h.source.GetFormDefinition(c.Request.Context(), module, c.Param("formId"))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, form)
}

// SaveFormDefinition handles PUT /metadata/modules/:module/forms
func (h *MetadataHandler) SaveFormDefinition(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	var req dto.SaveFormDefinitionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	form := metadata.FormDefinition{
		ID:       req.ID,
		Module:   module,
		Name:     req.Name,
		IsPublic: req.IsPublic,
		Mappings: req.Mappings,
		Settings: req.Settings,
	}
	if err := h.repo.SaveFormDefinition(c.Request.Context(), form); err != nil {
		h.Error(c, err)
		return
	}

	h.notifyChange(c, "forms_changed", module)
	h.OK(c, form)
}

// CacheStats handles GET /metadata/cache/stats
func (h *MetadataHandler) CacheStats(c *gin.Context) {
	stats := h.cache.GetStats()
	c.JSON(http.StatusOK, dto.CacheStatsResponse{
		Modules: stats.Modules,
		Layouts: stats.Layouts,
		Forms:   stats.Forms,
	})
}

// RegisterRoutes registers metadata routes. Mutations require the
// metadata:write permission.
func (h *MetadataHandler) RegisterRoutes(rg *gin.RouterGroup, write gin.HandlerFunc) {
	rg.GET("/metadata/modules", h.ListModules)
	rg.GET("/metadata/modules/:module/fields", h.GetFields)
	rg.POST("/metadata/modules/:module/fields", write, h.CreateField)
	rg.PUT("/metadata/modules/:module/fields/:apiName", write, h.UpdateField)
	rg.DELETE("/metadata/modules/:module/fields/:apiName", write, h.DeleteField)
	rg.GET("/metadata/modules/:module/layouts/:viewType", h.GetLayout)
	rg.PUT("/metadata/modules/:module/layouts", write, h.SaveLayout)
	rg.GET("/metadata/modules/:module/forms/:formId", h.GetFormDefinition)
	rg.PUT("/metadata/modules/:module/forms", write, h.SaveFormDefinition)
	rg.GET("/metadata/cache/stats", h.CacheStats)
}
