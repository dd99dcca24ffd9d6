package views

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmforge/internal/core/apperror"
	"crmforge/internal/core/id"
	"crmforge/internal/domain/filter"
)

func TestService_SaveAssignsID(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	scope := Scope{UserID: id.New(), Module: "deals"}

	saved, err := svc.Save(ctx, scope, View{
		Name: "My open deals",
		Filters: []filter.Item{
			{Field: "stage", Operator: filter.NotInList, Value: []any{"closed_won", "closed_lost"}},
		},
	})
	require.NoError(t, err)
	assert.False(t, id.IsNil(saved.ID))

	list, err := svc.List(ctx, scope)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "My open deals", list[0].Name)
}

func TestService_SaveUpdatesExisting(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	scope := Scope{UserID: id.New(), Module: "deals"}

	saved, err := svc.Save(ctx, scope, View{Name: "Draft"})
	require.NoError(t, err)

	saved.Name = "Renamed"
	_, err = svc.Save(ctx, scope, saved)
	require.NoError(t, err)

	list, _ := svc.List(ctx, scope)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Name)
}

func TestService_SaveUnknownIDNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	scope := Scope{UserID: id.New(), Module: "deals"}

	_, err := svc.Save(ctx, scope, View{ID: id.New(), Name: "ghost"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_SingleDefaultPerScope(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	scope := Scope{UserID: id.New(), Module: "deals"}

	first, err := svc.Save(ctx, scope, View{Name: "A", IsDefault: true})
	require.NoError(t, err)
	_, err = svc.Save(ctx, scope, View{Name: "B", IsDefault: true})
	require.NoError(t, err)

	list, _ := svc.List(ctx, scope)
	require.Len(t, list, 2)
	for _, v := range list {
		if v.ID == first.ID {
			assert.False(t, v.IsDefault)
		} else {
			assert.True(t, v.IsDefault)
		}
	}
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())
	scope := Scope{UserID: id.New(), Module: "deals"}

	saved, err := svc.Save(ctx, scope, View{Name: "A"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, scope, saved.ID))
	list, _ := svc.List(ctx, scope)
	assert.Empty(t, list)

	assert.True(t, apperror.IsNotFound(svc.Delete(ctx, scope, saved.ID)))
}

func TestMemoryStore_ScopeIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	user := id.New()

	require.NoError(t, store.Set(ctx, Scope{UserID: user, Module: "deals"}, []View{{ID: id.New(), Name: "deals view"}}))

	got, err := store.Get(ctx, Scope{UserID: user, Module: "contacts"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
