package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"crmforge/internal/core/apperror"
	"crmforge/internal/domain/auth"
	"crmforge/internal/domain/records"
	"crmforge/internal/infrastructure/http/v1/dto"
	"crmforge/internal/metadata"
)

// minReferenceQueryLen mirrors the client-side typeahead threshold: shorter
// queries return an empty option set instead of scanning the table.
const minReferenceQueryLen = 2

const defaultReferenceLimit = 10

// UserSearcher resolves user_lookup typeahead queries against the tenant's
// user store. Satisfied by auth.Service.
type UserSearcher interface {
	ListUsers(ctx context.Context, filter auth.UserFilter) ([]auth.User, int, error)
}

// ReferenceHandler serves typeahead options for reference fields.
type ReferenceHandler struct {
	*BaseHandler
	service  *records.Service
	source   metadata.Source
	registry *metadata.Registry
	users    UserSearcher
}

// NewReferenceHandler creates a reference handler. users may be nil when
// the auth surface is not wired; user_lookup fields then resolve to an
// empty option set.
func NewReferenceHandler(base *BaseHandler, service *records.Service, source metadata.Source, registry *metadata.Registry, users UserSearcher) *ReferenceHandler {
	return &ReferenceHandler{
		BaseHandler: base,
		service:     service,
		source:      source,
		registry:    registry,
		users:       users,
	}
}

// Options handles GET /modules/:module/fields/:apiName/options
//
// Looks up the reference field's target module and display field, then runs
// the typeahead query against the target's records.
func (h *ReferenceHandler) Options(c *gin.Context) {
	module := c.Param("module")
	if _, ok := h.registry.Get(module); !ok {
		h.Error(c, apperror.NewNotFound("module", module))
		return
	}
	ctx := c.Request.Context()

	var req dto.ReferenceSearchRequest
	if !h.BindQuery(c, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultReferenceLimit
	}

	system, custom, err := h.source.GetFieldsForModule(ctx, module)
	if err != nil {
		h.Error(c, apperror.NewMetadataFetch(module, err))
		return
	}

	apiName := c.Param("apiName")
	field, found := findField(append(system, custom...), apiName)
	if !found {
		h.Error(c, apperror.NewNotFound("field", apiName))
		return
	}
	if !field.FieldType.IsReference() || field.ReferenceConfig == nil {
		h.Error(c, apperror.NewValidation("field is not a reference").WithDetail("apiName", apiName))
		return
	}

	if len(req.Query) < minReferenceQueryLen {
		c.JSON(http.StatusOK, gin.H{"items": []dto.ReferenceOptionResponse{}})
		return
	}

	// Users are not records: they live in the auth store, so user_lookup
	// fields search there instead of the records table.
	if field.FieldType == metadata.TypeUserLookup {
		h.userOptions(c, req)
		return
	}

	cfg := field.ReferenceConfig
	matches, err := h.service.SearchOptions(ctx, cfg.TargetModule, req.Query, cfg.DisplayField, req.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ReferenceOptionResponse, 0, len(matches))
	for _, rec := range matches {
		items = append(items, dto.ReferenceOptionResponse{
			ID:    rec.ID.String(),
			Label: rec.Values.GetString(cfg.DisplayField),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// userOptions runs the typeahead against active users by name or email.
func (h *ReferenceHandler) userOptions(c *gin.Context, req dto.ReferenceSearchRequest) {
	items := []dto.ReferenceOptionResponse{}
	if h.users != nil {
		active := true
		users, _, err := h.users.ListUsers(c.Request.Context(), auth.UserFilter{
			Search:   req.Query,
			IsActive: &active,
			Limit:    req.Limit,
		})
		if err != nil {
			h.Error(c, err)
			return
		}
		for _, u := range users {
			items = append(items, dto.ReferenceOptionResponse{
				ID:    u.ID.String(),
				Label: u.FullName(),
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func findField(fields []metadata.FieldDescriptor, apiName string) (metadata.FieldDescriptor, bool) {
	for _, f := range fields {
		if f.APIName == apiName {
			return f, true
		}
	}
	return metadata.FieldDescriptor{}, false
}

// RegisterRoutes registers reference routes.
func (h *ReferenceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/modules/:module/fields/:apiName/options", h.Options)
}
