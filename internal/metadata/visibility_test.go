package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVisible(t *testing.T) {
	open := FieldDescriptor{APIName: "open"}
	restricted := FieldDescriptor{APIName: "margin", VisibleToRoles: []string{"admin", "finance"}}

	assert.True(t, IsVisible(open, "marketing"))
	assert.True(t, IsVisible(open, "")) // anonymous passes an empty allow-list

	assert.True(t, IsVisible(restricted, "admin"))
	assert.True(t, IsVisible(restricted, "finance"))
	assert.False(t, IsVisible(restricted, "marketing"))
	assert.False(t, IsVisible(restricted, "")) // anonymous never passes a non-empty allow-list
}

func TestIsVisibleForAny(t *testing.T) {
	restricted := FieldDescriptor{VisibleToRoles: []string{"admin"}}

	assert.True(t, IsVisibleForAny(restricted, []string{"sales", "admin"}))
	assert.False(t, IsVisibleForAny(restricted, []string{"sales"}))
	assert.False(t, IsVisibleForAny(restricted, nil))
	assert.True(t, IsVisibleForAny(FieldDescriptor{}, nil))
}

func TestIsVisibleOnDetail(t *testing.T) {
	emptyOptionalCustom := FieldDescriptor{APIName: "cf", IsCustom: true}
	assert.False(t, IsVisibleOnDetail(emptyOptionalCustom, "", "sales"))
	assert.False(t, IsVisibleOnDetail(emptyOptionalCustom, nil, "sales"))
	assert.True(t, IsVisibleOnDetail(emptyOptionalCustom, "filled", "sales"))

	requiredCustom := FieldDescriptor{APIName: "cf", IsCustom: true, IsRequired: true}
	assert.True(t, IsVisibleOnDetail(requiredCustom, "", "sales"))

	// System fields show even when empty.
	system := FieldDescriptor{APIName: "email"}
	assert.True(t, IsVisibleOnDetail(system, "", "sales"))

	// Role filter still applies on detail views.
	restricted := FieldDescriptor{APIName: "cf", IsCustom: true, VisibleToRoles: []string{"admin"}}
	assert.False(t, IsVisibleOnDetail(restricted, "filled", "sales"))
}

func TestIsEmptyValue(t *testing.T) {
	assert.True(t, IsEmptyValue(nil))
	assert.True(t, IsEmptyValue(""))
	assert.True(t, IsEmptyValue([]any{}))
	assert.True(t, IsEmptyValue([]string{}))

	assert.False(t, IsEmptyValue("x"))
	assert.False(t, IsEmptyValue(0)) // zero is a value, not empty
	assert.False(t, IsEmptyValue(false))
	assert.False(t, IsEmptyValue([]any{"a"}))
}

func TestVisibleFields(t *testing.T) {
	fields := []FieldDescriptor{
		{APIName: "a"},
		{APIName: "b", VisibleToRoles: []string{"admin"}},
		{APIName: "c"},
	}

	got := VisibleFields(fields, "sales")
	assert.Equal(t, []string{"a", "c"}, names(got))

	got = VisibleFields(fields, "admin")
	assert.Equal(t, []string{"a", "b", "c"}, names(got))
}
