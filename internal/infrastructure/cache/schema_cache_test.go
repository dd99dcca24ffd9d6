package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmforge/internal/core/tenant"
	"crmforge/internal/metadata"
)

// countingSource tracks delegate calls.
type countingSource struct {
	fieldCalls  int
	layoutCalls int
	formCalls   int
	fields      []metadata.FieldDescriptor
	layout      *metadata.Layout
	err         error
}

func (s *countingSource) GetFieldsForModule(context.Context, string) ([]metadata.FieldDescriptor, []metadata.FieldDescriptor, error) {
	s.fieldCalls++
	return s.fields, nil, s.err
}

func (s *countingSource) GetActiveLayout(context.Context, string, metadata.ViewType) (*metadata.Layout, error) {
	s.layoutCalls++
	return s.layout, s.err
}

func (s *countingSource) GetFormDefinition(context.Context, string, string) (*metadata.FormDefinition, error) {
	s.formCalls++
	return &metadata.FormDefinition{ID: "f1"}, s.err
}

func TestSchemaCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{
		fields: []metadata.FieldDescriptor{{APIName: "name"}},
	}
	cache := NewSchemaCache(nil, source)

	for i := 0; i < 3; i++ {
		system, _, err := cache.GetFieldsForModule(ctx, "deals")
		require.NoError(t, err)
		assert.Len(t, system, 1)
	}
	assert.Equal(t, 1, source.fieldCalls)
}

func TestSchemaCache_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{err: errors.New("db down")}
	cache := NewSchemaCache(nil, source)

	_, _, err := cache.GetFieldsForModule(ctx, "deals")
	require.Error(t, err)
	_, _, err = cache.GetFieldsForModule(ctx, "deals")
	require.Error(t, err)
	assert.Equal(t, 2, source.fieldCalls)
}

func TestSchemaCache_NilLayoutCached(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{layout: nil}
	cache := NewSchemaCache(nil, source)

	for i := 0; i < 2; i++ {
		layout, err := cache.GetActiveLayout(ctx, "deals", metadata.ViewEdit)
		require.NoError(t, err)
		assert.Nil(t, layout)
	}
	assert.Equal(t, 1, source.layoutCalls)
}

func TestSchemaCache_InvalidateByModule(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{fields: []metadata.FieldDescriptor{{APIName: "name"}}}
	cache := NewSchemaCache(nil, source)

	_, _, err := cache.GetFieldsForModule(ctx, "deals")
	require.NoError(t, err)
	_, _, err = cache.GetFieldsForModule(ctx, "leads")
	require.NoError(t, err)
	_, err = cache.GetActiveLayout(ctx, "deals", metadata.ViewEdit)
	require.NoError(t, err)
	_, err = cache.GetFormDefinition(ctx, "deals", "f1")
	require.NoError(t, err)

	cache.Invalidate("", "deals")

	stats := cache.GetStats()
	assert.Equal(t, 1, stats.Modules) // leads stays
	assert.Equal(t, 0, stats.Layouts)
	assert.Equal(t, 0, stats.Forms)

	_, _, err = cache.GetFieldsForModule(ctx, "deals")
	require.NoError(t, err)
	assert.Equal(t, 3, source.fieldCalls)
}

func TestSchemaCache_NotificationInvalidates(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{fields: []metadata.FieldDescriptor{{APIName: "name"}}}
	cache := NewSchemaCache(nil, source)
	cache.ctx = ctx

	_, _, err := cache.GetFieldsForModule(ctx, "deals")
	require.NoError(t, err)

	var notified []string
	cache.OnInvalidation(func(channel, payload string) {
		notified = append(notified, channel+":"+payload)
	})

	cache.handleNotification("schema_changed", "deals")
	assert.Equal(t, 0, cache.GetStats().Modules)
	assert.Equal(t, []string{"schema_changed:deals"}, notified)

	// Unknown channels are ignored and not delivered.
	cache.handleNotification("something_else", "deals")
	assert.Len(t, notified, 1)
}

func TestSchemaCache_BlankPayloadFlushesAll(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{fields: []metadata.FieldDescriptor{{APIName: "name"}}}
	cache := NewSchemaCache(nil, source)
	cache.ctx = ctx

	_, _, err := cache.GetFieldsForModule(ctx, "deals")
	require.NoError(t, err)
	_, _, err = cache.GetFieldsForModule(ctx, "leads")
	require.NoError(t, err)

	cache.handleNotification("schema_changed", " ")
	assert.Equal(t, 0, cache.GetStats().Modules)
}

func TestSchemaCache_TenantScopedEntries(t *testing.T) {
	source := &countingSource{fields: []metadata.FieldDescriptor{{APIName: "name"}}}
	cache := NewSchemaCache(nil, source)

	ctxA := tenant.WithTenant(context.Background(), &tenant.Tenant{ID: "acme"})
	ctxB := tenant.WithTenant(context.Background(), &tenant.Tenant{ID: "globex"})

	_, _, err := cache.GetFieldsForModule(ctxA, "deals")
	require.NoError(t, err)
	_, _, err = cache.GetFieldsForModule(ctxB, "deals")
	require.NoError(t, err)

	// Same module, different tenants: two loads, two entries.
	assert.Equal(t, 2, source.fieldCalls)
	assert.Equal(t, 2, cache.GetStats().Modules)

	// Tenant-qualified payload drops only that tenant's entry.
	cache.ctx = context.Background()
	cache.handleNotification("schema_changed", "acme:deals")
	assert.Equal(t, 1, cache.GetStats().Modules)

	_, _, err = cache.GetFieldsForModule(ctxB, "deals")
	require.NoError(t, err)
	assert.Equal(t, 2, source.fieldCalls) // globex still cached
}
