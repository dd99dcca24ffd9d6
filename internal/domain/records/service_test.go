package records

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmforge/internal/core/apperror"
	"crmforge/internal/core/entity"
	"crmforge/internal/core/id"
	"crmforge/internal/domain"
	"crmforge/internal/forms"
	"crmforge/internal/metadata"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	mu      sync.Mutex
	records map[id.ID]entity.Record
	failOn  map[id.ID]error // SetDeletionMark failures by id
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
	stored, ok := r.records[rec.ID]
	if !ok {
		return apperror.NewNotFound(rec.Module, rec.ID.String())
	}
	if stored.Version != rec.Version-1 {
		return apperror.NewConcurrentModification(rec.Module, rec.ID.String())
	}
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
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []entity.Record
	for _, rec := range r.records {
		if rec.Module == module && (f.IncludeDeleted || !rec.DeletionMark) {
			items = append(items, rec)
		}
	}
	return domain.ListResult[entity.Record]{Items: items, TotalCount: int64(len(items))}, nil
}

func (r *memRepo) Search(context.Context, string, string, string, int) ([]entity.Record, error) {
	return nil, nil
}

// staticSource serves a fixed field set.
type staticSource struct {
	fields []metadata.FieldDescriptor
	err    error
}

func (s *staticSource) GetFieldsForModule(context.Context, string) ([]metadata.FieldDescriptor, []metadata.FieldDescriptor, error) {
	return s.fields, nil, s.err
}

func (s *staticSource) GetActiveLayout(context.Context, string, metadata.ViewType) (*metadata.Layout, error) {
	return nil, nil
}

func (s *staticSource) GetFormDefinition(context.Context, string, string) (*metadata.FormDefinition, error) {
	return nil, nil
}

type noopTx struct{}

func (noopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(repo Repository, source metadata.Source) *Service {
	exprs, _ := forms.NewExpressionCache()
	return NewService(ServiceConfig{
		Repo:      repo,
		Source:    source,
		Validator: forms.NewValidator(forms.NewTypeRegistry(), exprs),
		TxManager: noopTx{},
	})
}

func leadFields() []metadata.FieldDescriptor {
	return []metadata.FieldDescriptor{
		{APIName: "name", Label: "Name", FieldType: metadata.TypeText, IsRequired: true},
		{APIName: "email", Label: "Email", FieldType: metadata.TypeEmail},
	}
}

func TestService_CreateValidatesSchema(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemRepo(), &staticSource{fields: leadFields()})

	_, err := svc.Create(ctx, "leads", entity.Values{"email": "broken"})
	require.Error(t, err)
	assert.Equal(t, map[string]string{
		"name":  "Name is required",
		"email": "Invalid email address",
	}, apperror.FieldErrors(err))

	rec, err := svc.Create(ctx, "leads", entity.Values{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Version)
	assert.False(t, id.IsNil(rec.ID))
}

func TestService_CreateMetadataFailure(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemRepo(), &staticSource{err: errors.New("schema db down")})

	_, err := svc.Create(ctx, "leads", entity.Values{"name": "Ada"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMetadataFetch, appErr.Code)
}

func TestService_UpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo, &staticSource{fields: leadFields()})

	rec, err := svc.Create(ctx, "leads", entity.Values{"name": "Ada"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "leads", rec.ID, entity.Values{"name": "Ada L."}, rec.Version)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Ada L.", updated.Values.GetString("name"))

	// Second writer still holding version 1 loses.
	_, err = svc.Update(ctx, "leads", rec.ID, entity.Values{"name": "other"}, rec.Version)
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestService_UpdateMergePreservesUntouchedValues(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemRepo(), &staticSource{fields: leadFields()})

	rec, err := svc.Create(ctx, "leads", entity.Values{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "leads", rec.ID, entity.Values{"name": "Ada L."}, rec.Version)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", updated.Values.GetString("email"))
}

func TestService_RemoveSoftDeletes(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo, &staticSource{fields: leadFields()})

	rec, err := svc.Create(ctx, "leads", entity.Values{"name": "Ada"})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, "leads", rec.ID))

	list, err := svc.List(ctx, "leads", domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	list, err = svc.List(ctx, "leads", domain.ListFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestService_BulkRemovePartialFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo, &staticSource{fields: leadFields()})

	a, err := svc.Create(ctx, "leads", entity.Values{"name": "A"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, "leads", entity.Values{"name": "B"})
	require.NoError(t, err)
	c, err := svc.Create(ctx, "leads", entity.Values{"name": "C"})
	require.NoError(t, err)

	repo.failOn[b.ID] = errors.New("lock timeout")

	result := svc.BulkRemove(ctx, "leads", []id.ID{a.ID, b.ID, c.ID})

	assert.ElementsMatch(t, []id.ID{a.ID, c.ID}, result.Removed)
	require.Len(t, result.Failed, 1)
	assert.Error(t, result.Failed[b.ID])
}

func TestService_HooksRun(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemRepo(), &staticSource{fields: leadFields()})

	var events []domain.HookEvent
	for _, ev := range []domain.HookEvent{domain.BeforeCreate, domain.AfterCreate, domain.BeforeDelete, domain.AfterDelete} {
		event := ev
		svc.Hooks().On(event, func(context.Context, entity.Record) error {
			events = append(events, event)
			return nil
		})
	}

	rec, err := svc.Create(ctx, "leads", entity.Values{"name": "Ada"})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, "leads", rec.ID))

	assert.Equal(t, []domain.HookEvent{
		domain.BeforeCreate, domain.AfterCreate,
		domain.BeforeDelete, domain.AfterDelete,
	}, events)
}

func TestService_BeforeHookAborts(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo, &staticSource{fields: leadFields()})

	svc.Hooks().On(domain.BeforeCreate, func(context.Context, entity.Record) error {
		return apperror.NewForbidden("quota exceeded")
	})

	_, err := svc.Create(ctx, "leads", entity.Values{"name": "Ada"})
	require.Error(t, err)
	assert.Empty(t, repo.records)
}
