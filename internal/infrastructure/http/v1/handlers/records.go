package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crmforge/internal/core/apperror"
	"crmforge/internal/core/id"
	"crmforge/internal/domain"
	"crmforge/internal/domain/records"
	"crmforge/internal/infrastructure/http/v1/dto"
	"crmforge/internal/metadata"
)

// RecordsHandler exposes CRUD over module records.
type RecordsHandler struct {
	*BaseHandler
	service  *records.Service
	registry *metadata.Registry
}

// NewRecordsHandler creates a records handler.
func NewRecordsHandler(base *BaseHandler, service *records.Service, registry *metadata.Registry) *RecordsHandler {
	return &RecordsHandler{
		BaseHandler: base,
		service:     service,
		registry:    registry,
	}
}

// module resolves and validates the :module path parameter.
func (h *RecordsHandler) module(c *gin.Context) (string, bool) {
	name := c.Param("module")
	if _, ok := h.registry.Get(name); !ok {
		h.Error(c, apperror.NewNotFound("module", name))
		return "", false
	}
	return name, true
}

func (h *RecordsHandler) recordID(c *gin.Context) (id.ID, bool) {
	raw := c.Param("id")
	parsed, err := id.Parse(raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid record id").WithDetail("id", raw))
		return id.Nil(), false
	}
	return parsed, true
}

// List handles GET /modules/:module/records
func (h *RecordsHandler) List(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	f := domain.DefaultListFilter()
	f.Search = c.Query("search")
	f.IncludeDeleted = c.Query("includeDeleted") == "true"
	if orderBy := c.Query("orderBy"); orderBy != "" {
		f.OrderBy = orderBy
	}
	f.Limit = h.ParseIntQuery(c, "limit", f.Limit)
	f.Offset = h.ParseIntQuery(c, "offset", 0)

	result, err := h.service.List(c.Request.Context(), module, f)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromRecords(result.Items),
		TotalCount: result.TotalCount,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
}

// Query handles POST /modules/:module/records/query
//
// The body carries structured filter conditions which do not fit query
// string encoding.
func (h *RecordsHandler) Query(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	var req dto.ListRecordsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	f, err := req.ToListFilter()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid filter").WithDetail("error", err.Error()))
		return
	}

	result, err := h.service.List(c.Request.Context(), module, f)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromRecords(result.Items),
		TotalCount: result.TotalCount,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
}

// Get handles GET /modules/:module/records/:id
func (h *RecordsHandler) Get(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}
	recordID, ok := h.recordID(c)
	if !ok {
		return
	}

	rec, err := h.service.GetByID(c.Request.Context(), module, recordID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromRecord(rec))
}

// Create handles POST /modules/:module/records
func (h *RecordsHandler) Create(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	var req dto.CreateRecordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.Create(c.Request.Context(), module, req.Values)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, rec.ID.String())
}

// Update handles PUT /modules/:module/records/:id
func (h *RecordsHandler) Update(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}
	recordID, ok := h.recordID(c)
	if !ok {
		return
	}

	var req dto.UpdateRecordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.Update(c.Request.Context(), module, recordID, req.Values, req.Version)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromRecord(rec))
}

// Remove handles DELETE /modules/:module/records/:id (soft delete).
func (h *RecordsHandler) Remove(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}
	recordID, ok := h.recordID(c)
	if !ok {
		return
	}

	if err := h.service.Remove(c.Request.Context(), module, recordID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// BulkRemove handles POST /modules/:module/records/bulk-remove
func (h *RecordsHandler) BulkRemove(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	var req dto.BulkRemoveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ids, err := id.ParseAll(req.IDs)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid record id").WithDetail("error", err.Error()))
		return
	}

	result := h.service.BulkRemove(c.Request.Context(), module, ids)

	resp := dto.BulkRemoveResponse{Removed: len(result.Removed)}
	if len(result.Failed) > 0 {
		resp.Failed = make(map[string]string, len(result.Failed))
		for failedID, failErr := range result.Failed {
			resp.Failed[failedID.String()] = failErr.Error()
		}
	}
	h.OK(c, resp)
}
