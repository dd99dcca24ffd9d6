package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestApplyMappings(t *testing.T) {
	fields := []FieldDescriptor{
		{APIName: "email", Label: "Email", FieldType: TypeEmail, SortOrder: 0},
		{APIName: "phone", Label: "Phone", FieldType: TypePhone, SortOrder: 1},
		{APIName: "source", Label: "Lead Source", FieldType: TypeSelect, SortOrder: 2},
	}

	form := FormDefinition{
		Module: "leads",
		Mappings: []FormMapping{
			{FieldAPIName: "phone", SortOrder: 0, Label: strPtr("Mobile"), IsRequired: boolPtr(true)},
			{FieldAPIName: "email", SortOrder: 1},
			{FieldAPIName: "source", SortOrder: 2, IsHidden: true},
		},
	}

	got := form.ApplyMappings(fields)

	// Hidden field kept but flagged, mapping order wins, overrides applied.
	assert.Equal(t, []string{"phone", "email", "source"}, names(got))
	assert.Equal(t, "Mobile", got[0].Label)
	assert.True(t, got[0].IsRequired)
	assert.Equal(t, "Email", got[1].Label)
	assert.True(t, got[2].Hidden)

	// Rendering strips the hidden field.
	assert.Equal(t, []string{"phone", "email"}, names(RenderableFields(got)))
}

func TestApplyMappings_HiddenMappingCarriesDefault(t *testing.T) {
	fields := []FieldDescriptor{{APIName: "source", FieldType: TypeSelect}}
	form := FormDefinition{Mappings: []FormMapping{
		{FieldAPIName: "source", IsHidden: true, DefaultValue: "web"},
	}}

	got := form.ApplyMappings(fields)
	if assert.Len(t, got, 1) {
		assert.True(t, got[0].Hidden)
		assert.Equal(t, "web", got[0].DefaultValue)
	}
	assert.Empty(t, RenderableFields(got))
}

func TestApplyMappings_UnmappedFieldExcluded(t *testing.T) {
	fields := []FieldDescriptor{
		{APIName: "a"},
		{APIName: "b"},
	}
	form := FormDefinition{Mappings: []FormMapping{{FieldAPIName: "b"}}}

	got := form.ApplyMappings(fields)
	assert.Equal(t, []string{"b"}, names(got))
}

func TestApplyMappings_DefaultValueOverride(t *testing.T) {
	fields := []FieldDescriptor{{APIName: "source", DefaultValue: "web"}}
	form := FormDefinition{Mappings: []FormMapping{
		{FieldAPIName: "source", DefaultValue: "landing_page"},
	}}

	got := form.ApplyMappings(fields)
	assert.Equal(t, "landing_page", got[0].DefaultValue)
}

func TestApplyMappings_MappingForDeletedField(t *testing.T) {
	form := FormDefinition{Mappings: []FormMapping{{FieldAPIName: "ghost"}}}
	got := form.ApplyMappings([]FieldDescriptor{{APIName: "real"}})
	assert.Empty(t, got)
}
