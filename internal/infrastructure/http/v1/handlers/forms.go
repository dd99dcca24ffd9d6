package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"crmforge/internal/core/apperror"
	appctx "crmforge/internal/core/context"
	"crmforge/internal/core/id"
	"crmforge/internal/core/tenant"
	"crmforge/internal/domain/records"
	"crmforge/internal/forms"
	"crmforge/internal/infrastructure/http/v1/dto"
	"crmforge/internal/metadata"
)

// FormsHandler renders form descriptors and accepts public form
// submissions. Authenticated record edits go through the records handler;
// this handler owns the form-shaped surface: resolved field lists, initial
// values, and the anonymous public-form flow.
type FormsHandler struct {
	*BaseHandler
	service    *records.Service
	source     metadata.Source
	registry   *metadata.Registry
	validator  *forms.Validator
	types      *forms.TypeRegistry
	autoNumber forms.AutoNumberFunc
}

// FormsHandlerConfig wires the forms handler.
type FormsHandlerConfig struct {
	Base       *BaseHandler
	Service    *records.Service
	Source     metadata.Source
	Registry   *metadata.Registry
	Validator  *forms.Validator
	Types      *forms.TypeRegistry
	AutoNumber forms.AutoNumberFunc
}

// NewFormsHandler creates a forms handler.
func NewFormsHandler(cfg FormsHandlerConfig) *FormsHandler {
	return &FormsHandler{
		BaseHandler: cfg.Base,
		service:     cfg.Service,
		source:      cfg.Source,
		registry:    cfg.Registry,
		validator:   cfg.Validator,
		types:       cfg.Types,
		autoNumber:  cfg.AutoNumber,
	}
}

func (h *FormsHandler) module(c *gin.Context) (string, bool) {
	name := c.Param("module")
	if _, ok := h.registry.Get(name); !ok {
		h.Error(c, apperror.NewNotFound("module", name))
		return "", false
	}
	return name, true
}

// resolvedFields loads and orders the module's schema for one view type.
func (h *FormsHandler) resolvedFields(ctx context.Context, module string, viewType metadata.ViewType) ([]metadata.FieldDescriptor, error) {
	system, custom, err := h.source.GetFieldsForModule(ctx, module)
	if err != nil {
		return nil, apperror.NewMetadataFetch(module, err)
	}
	layout, err := h.source.GetActiveLayout(ctx, module, viewType)
	if err != nil {
		return nil, apperror.NewMetadataFetch(module, err)
	}
	return metadata.ResolveOrder(system, custom, layout), nil
}

func activeRole(ctx context.Context) string {
	user := appctx.GetUser(ctx)
	if user == nil || len(user.Roles) == 0 {
		return ""
	}
	return user.Roles[0]
}

// Render handles GET /modules/:module/form
//
// Query params: viewType (create|edit, default create) and recordId for
// edit forms. Returns the role-visible ordered field list plus the initial
// draft values a client should seed its form with.
func (h *FormsHandler) Render(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	viewType := metadata.ViewType(c.DefaultQuery("viewType", string(metadata.ViewCreate)))

	fields, err := h.resolvedFields(ctx, module, viewType)
	if err != nil {
		h.Error(c, err)
		return
	}

	var existing map[string]any
	if rawID := c.Query("recordId"); rawID != "" {
		recordID, parseErr := id.Parse(rawID)
		if parseErr != nil {
			h.Error(c, apperror.NewValidation("invalid record id").WithDetail("id", rawID))
			return
		}
		rec, getErr := h.service.GetByID(ctx, module, recordID)
		if getErr != nil {
			h.Error(c, getErr)
			return
		}
		existing = rec.Values
	}

	// The session is built over the visible subset only: a role-restricted
	// field must not leak its stored value through initialValues.
	role := activeRole(ctx)
	visible := metadata.VisibleFields(fields, role)
	session := forms.NewSession(forms.SessionConfig{
		Module:    module,
		Fields:    visible,
		Role:      role,
		Validator: h.validator,
		Types:     h.types,
	})
	initial := session.Initialize(existing)
	session.Close()

	c.JSON(http.StatusOK, dto.FormDescriptorResponse{
		Module:        module,
		Fields:        visible,
		InitialValues: initial,
	})
}

// publicForm loads a form definition and refuses non-public ones. Tenants
// can switch the whole public surface off via settings. Returns the
// module's full field list alongside the mapping-projected one: the submit
// path needs both to seed defaults for fields the form does not map.
func (h *FormsHandler) publicForm(c *gin.Context, module string) (*metadata.FormDefinition, []metadata.FieldDescriptor, []metadata.FieldDescriptor, bool) {
	ctx := c.Request.Context()
	formID := c.Param("formId")

	if t := tenant.GetTenant(ctx); t != nil && !t.PublicFormsEnabled() {
		h.Error(c, apperror.NewNotFound("form", formID))
		return nil, nil, nil, false
	}

	form, err := h.source.GetFormDefinition(ctx, module, formID)
	if err != nil {
		h.Error(c, err)
		return nil, nil, nil, false
	}
	if !form.IsPublic {
		h.Error(c, apperror.NewNotFound("form", formID))
		return nil, nil, nil, false
	}

	fields, err := h.resolvedFields(ctx, module, metadata.ViewCreate)
	if err != nil {
		h.Error(c, err)
		return nil, nil, nil, false
	}
	return form, fields, form.ApplyMappings(fields), true
}

// RenderPublic handles GET /public/forms/:module/:formId
func (h *FormsHandler) RenderPublic(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	form, _, formFields, ok := h.publicForm(c, module)
	if !ok {
		return
	}

	// Hidden mappings and role-restricted fields never reach the visitor,
	// neither as descriptors nor as initial values.
	role := activeRole(c.Request.Context())
	renderable := metadata.RenderableFields(metadata.VisibleFields(formFields, role))
	session := forms.NewSession(forms.SessionConfig{
		Module:    module,
		Fields:    renderable,
		Role:      role,
		Validator: h.validator,
		Types:     h.types,
	})
	initial := session.Initialize(nil)
	session.Close()

	settings := form.Settings
	c.JSON(http.StatusOK, dto.FormDescriptorResponse{
		Module:        module,
		Fields:        renderable,
		InitialValues: initial,
		Settings:      &settings,
	})
}

// SubmitPublic handles POST /public/forms/:module/:formId/submit
//
// The submission runs the full form lifecycle server-side: seed defaults,
// apply the caller's values, validate against the mapped field set, top up
// unmapped module defaults, then create the record. Field errors come back
// as a 400 with per-field messages.
func (h *FormsHandler) SubmitPublic(c *gin.Context) {
	module, ok := h.module(c)
	if !ok {
		return
	}

	form, moduleFields, formFields, ok := h.publicForm(c, module)
	if !ok {
		return
	}

	var req dto.SubmitFormRequest
	if !h.BindJSON(c, &req) {
		return
	}

	// The session spans every mapped field, hidden ones included, so hidden
	// defaults land in the payload. Caller input only applies to fields the
	// form actually renders.
	ctx := c.Request.Context()
	session := forms.NewSession(forms.SessionConfig{
		Module:     module,
		Fields:     formFields,
		Role:       activeRole(ctx),
		Validator:  h.validator,
		Types:      h.types,
		AutoNumber: h.autoNumber,
	})
	session.Initialize(nil)
	for _, field := range formFields {
		if field.Hidden {
			continue
		}
		if value, present := req.Values[field.APIName]; present {
			session.SetValue(field.APIName, value)
		}
	}

	var created id.ID
	_, err := session.Submit(ctx, func(ctx context.Context, payload map[string]any) error {
		seedUnmappedDefaults(payload, moduleFields, formFields)
		rec, createErr := h.service.Create(ctx, module, payload)
		if createErr != nil {
			return createErr
		}
		created = rec.ID
		return nil
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.SubmitFormResponse{
		ID:      created.String(),
		Message: form.Settings.SuccessMessage,
	}
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", resp)
	c.JSON(http.StatusCreated, resp)
}

// seedUnmappedDefaults fills module-level defaults for fields the form does
// not map at all. A public form that maps only a subset of the schema still
// has to satisfy required system fields like a lead's status; their
// descriptor defaults make the record whole.
func seedUnmappedDefaults(payload map[string]any, moduleFields, formFields []metadata.FieldDescriptor) {
	mapped := make(map[string]struct{}, len(formFields))
	for _, f := range formFields {
		mapped[f.APIName] = struct{}{}
	}
	for _, f := range moduleFields {
		if _, ok := mapped[f.APIName]; ok {
			continue
		}
		if f.DefaultValue == nil {
			continue
		}
		if _, present := payload[f.APIName]; !present {
			payload[f.APIName] = f.DefaultValue
		}
	}
}

// RegisterRoutes registers form routes. Public routes skip authentication
// but still run tenant resolution.
func (h *FormsHandler) RegisterRoutes(protected, public *gin.RouterGroup) {
	protected.GET("/modules/:module/form", h.Render)
	public.GET("/public/forms/:module/:formId", h.RenderPublic)
	public.POST("/public/forms/:module/:formId/submit", h.SubmitPublic)
}
