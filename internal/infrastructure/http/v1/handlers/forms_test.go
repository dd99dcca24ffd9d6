package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmforge/internal/core/apperror"
	appctx "crmforge/internal/core/context"
	"crmforge/internal/core/entity"
	"crmforge/internal/core/id"
	"crmforge/internal/domain"
	"crmforge/internal/domain/records"
	"crmforge/internal/forms"
	"crmforge/internal/metadata"
)

// memRepo is an in-memory records.Repository for handler tests.
type memRepo struct {
	mu      sync.Mutex
	records map[id.ID]entity.Record
	failOn  map[id.ID]error
}

func newMemRepo() *memRepo {
	return &memRepo{
		records: make(map[id.ID]entity.Record),
		failOn:  make(map[id.ID]error),
	}
}

func (r *memRepo) Create(_ context.Context, rec *entity.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = *rec
	return nil
}

func (r *memRepo) GetByID(_ context.Context, module string, recordID id.ID) (entity.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordID]
	if !ok || rec.Module != module {
		return entity.Record{}, apperror.NewNotFound(module, recordID.String())
	}
	return rec, nil
}

func (r *memRepo) Update(_ context.Context, rec *entity.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = *rec
	return nil
}

func (r *memRepo) SetDeletionMark(_ context.Context, module string, recordID id.ID, marked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, failing := r.failOn[recordID]; failing {
		return err
	}
	rec, ok := r.records[recordID]
	if !ok {
		return apperror.NewNotFound(module, recordID.String())
	}
	rec.DeletionMark = marked
	r.records[recordID] = rec
	return nil
}

func (r *memRepo) List(_ context.Context, module string, f domain.ListFilter) (domain.ListResult[entity.Record], error) {
	return domain.ListResult[entity.Record]{}, nil
}

func (r *memRepo) Search(context.Context, string, string, string, int) ([]entity.Record, error) {
	return nil, nil
}

// created returns the single record created during a test.
func (r *memRepo) created(t *testing.T) entity.Record {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.records, 1)
	for _, rec := range r.records {
		return rec
	}
	return entity.Record{}
}

// staticSource serves a fixed schema and form definition.
type staticSource struct {
	system []metadata.FieldDescriptor
	custom []metadata.FieldDescriptor
	form   *metadata.FormDefinition
}

func (s *staticSource) GetFieldsForModule(context.Context, string) ([]metadata.FieldDescriptor, []metadata.FieldDescriptor, error) {
	return s.system, s.custom, nil
}

func (s *staticSource) GetActiveLayout(context.Context, string, metadata.ViewType) (*metadata.Layout, error) {
	return nil, nil
}

func (s *staticSource) GetFormDefinition(context.Context, string, string) (*metadata.FormDefinition, error) {
	if s.form == nil {
		return nil, apperror.NewNotFound("form", "none")
	}
	return s.form, nil
}

type noopTx struct{}

func (noopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestEngine() (*forms.Validator, *forms.TypeRegistry) {
	exprs, _ := forms.NewExpressionCache()
	types := forms.NewTypeRegistry()
	return forms.NewValidator(types, exprs), types
}

func newTestRecordsService(repo records.Repository, source metadata.Source) *records.Service {
	validator, _ := newTestEngine()
	return records.NewService(records.ServiceConfig{
		Repo:      repo,
		Source:    source,
		Validator: validator,
		TxManager: noopTx{},
	})
}

func leadsRegistry() *metadata.Registry {
	reg := metadata.NewRegistry()
	reg.Register(metadata.ModuleDef{Name: "leads", Label: "Leads"})
	return reg
}

func newFormsHandler(repo records.Repository, source metadata.Source) *FormsHandler {
	validator, types := newTestEngine()
	return NewFormsHandler(FormsHandlerConfig{
		Base:      NewBaseHandler(),
		Service:   newTestRecordsService(repo, source),
		Source:    source,
		Registry:  leadsRegistry(),
		Validator: validator,
		Types:     types,
	})
}

// withUser injects an authenticated caller into the request context.
func withUser(user *appctx.UserContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
	}
}

func TestRender_RestrictedFieldValueNotLeaked(t *testing.T) {
	gin.SetMode(gin.TestMode)

	source := &staticSource{
		system: []metadata.FieldDescriptor{
			{APIName: "lastName", Label: "Last Name", FieldType: metadata.TypeText, IsRequired: true, SortOrder: 0},
			{APIName: "internalScore", Label: "Internal Score", FieldType: metadata.TypeNumber, SortOrder: 1,
				VisibleToRoles: []string{"admin"}},
		},
	}
	repo := newMemRepo()
	rec := entity.NewRecord("leads", entity.Values{
		"lastName":      "Lovelace",
		"internalScore": 97,
	})
	require.NoError(t, repo.Create(context.Background(), &rec))

	h := newFormsHandler(repo, source)
	r := gin.New()
	r.Use(withUser(&appctx.UserContext{UserID: id.New().String(), Roles: []string{"sales"}}))
	r.GET("/modules/:module/form", h.Render)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/modules/leads/form?recordId="+rec.ID.String(), nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Fields        []metadata.FieldDescriptor `json:"fields"`
		InitialValues map[string]any             `json:"initialValues"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	fieldNames := make([]string, 0, len(resp.Fields))
	for _, f := range resp.Fields {
		fieldNames = append(fieldNames, f.APIName)
	}
	assert.Equal(t, []string{"lastName"}, fieldNames)
	assert.Equal(t, "Lovelace", resp.InitialValues["lastName"])
	assert.NotContains(t, resp.InitialValues, "internalScore")
}

func TestSubmitPublic_UnmappedRequiredFieldDefaulted(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Lead-capture shape: the form maps a subset of the schema; status is
	// required but unmapped and must fall back to its module default, the
	// hidden source mapping contributes its own default.
	source := &staticSource{
		system: []metadata.FieldDescriptor{
			{APIName: "lastName", Label: "Last Name", FieldType: metadata.TypeText, IsRequired: true, SortOrder: 0},
			{APIName: "email", Label: "Email", FieldType: metadata.TypeEmail, SortOrder: 1},
			{APIName: "source", Label: "Lead Source", FieldType: metadata.TypeSelect, SortOrder: 2,
				Options: []metadata.Option{{Value: "web", Label: "Web"}, {Value: "event", Label: "Event"}}},
			{APIName: "status", Label: "Status", FieldType: metadata.TypeSelect, IsRequired: true, SortOrder: 3,
				DefaultValue: "new",
				Options:      []metadata.Option{{Value: "new", Label: "New"}, {Value: "contacted", Label: "Contacted"}}},
		},
		form: &metadata.FormDefinition{
			ID:       "lead-capture",
			Module:   "leads",
			IsPublic: true,
			Mappings: []metadata.FormMapping{
				{FieldAPIName: "lastName", SortOrder: 0},
				{FieldAPIName: "email", SortOrder: 1},
				{FieldAPIName: "source", SortOrder: 2, IsHidden: true, DefaultValue: "web"},
			},
		},
	}
	repo := newMemRepo()
	h := newFormsHandler(repo, source)

	r := gin.New()
	r.POST("/public/forms/:module/:formId/submit", h.SubmitPublic)

	body, _ := json.Marshal(map[string]any{"values": map[string]any{
		"lastName": "Hopper",
		"email":    "grace@example.com",
		// Hidden fields reject caller input; the mapping default must win.
		"source": "event",
	}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/public/forms/leads/lead-capture/submit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	rec := repo.created(t)
	assert.Equal(t, "Hopper", rec.Values.GetString("lastName"))
	assert.Equal(t, "new", rec.Values.GetString("status"))
	assert.Equal(t, "web", rec.Values.GetString("source"))
}

func TestRenderPublic_HiddenMappingNotRendered(t *testing.T) {
	gin.SetMode(gin.TestMode)

	source := &staticSource{
		system: []metadata.FieldDescriptor{
			{APIName: "lastName", Label: "Last Name", FieldType: metadata.TypeText, IsRequired: true, SortOrder: 0},
			{APIName: "source", Label: "Lead Source", FieldType: metadata.TypeSelect, SortOrder: 1},
		},
		form: &metadata.FormDefinition{
			ID:       "lead-capture",
			Module:   "leads",
			IsPublic: true,
			Mappings: []metadata.FormMapping{
				{FieldAPIName: "lastName", SortOrder: 0},
				{FieldAPIName: "source", SortOrder: 1, IsHidden: true, DefaultValue: "web"},
			},
		},
	}
	h := newFormsHandler(newMemRepo(), source)

	r := gin.New()
	r.GET("/public/forms/:module/:formId", h.RenderPublic)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/public/forms/leads/lead-capture", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Fields        []metadata.FieldDescriptor `json:"fields"`
		InitialValues map[string]any             `json:"initialValues"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "lastName", resp.Fields[0].APIName)
	assert.NotContains(t, resp.InitialValues, "source")
}
