package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(fields []FieldDescriptor) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.APIName
	}
	return out
}

func TestResolveOrder_NoLayout(t *testing.T) {
	system := []FieldDescriptor{
		{APIName: "name", SortOrder: 0},
		{APIName: "stage", SortOrder: 5},
	}
	custom := []FieldDescriptor{
		{APIName: "region", IsCustom: true, SortOrder: 2},
		{APIName: "budget", IsCustom: true, SortOrder: 5},
	}

	got := ResolveOrder(system, custom, nil)

	// SortOrder interleaves system and custom; the tie at 5 keeps prior
	// relative order (stage before budget) because the sort is stable.
	assert.Equal(t, []string{"name", "region", "stage", "budget"}, names(got))
}

func TestResolveOrder_LayoutOrderWinsOverSortOrder(t *testing.T) {
	system := []FieldDescriptor{{APIName: "a", SortOrder: 0}}
	custom := []FieldDescriptor{
		{APIName: "b", IsCustom: true, SortOrder: 5},
		{APIName: "c", IsCustom: true, SortOrder: 1},
	}
	layout := &Layout{Sections: []LayoutSection{{Title: "Main", Fields: []string{"b"}}}}

	got := ResolveOrder(system, custom, layout)

	// "c" is orphaned and appended last despite its lower sortOrder.
	assert.Equal(t, []string{"a", "b", "c"}, names(got))
}

func TestResolveOrder_SystemAlwaysFirst(t *testing.T) {
	system := []FieldDescriptor{
		{APIName: "sys2", SortOrder: 2},
		{APIName: "sys1", SortOrder: 1},
	}
	custom := []FieldDescriptor{{APIName: "cf1", IsCustom: true, SortOrder: 0}}
	layout := &Layout{Sections: []LayoutSection{
		{Title: "Everything", Fields: []string{"cf1", "sys1"}},
	}}

	got := ResolveOrder(system, custom, layout)

	// Layout mention of a system field does not reorder the system tier.
	assert.Equal(t, []string{"sys1", "sys2", "cf1"}, names(got))
}

func TestResolveOrder_SectionEncounterOrderAndDedup(t *testing.T) {
	custom := []FieldDescriptor{
		{APIName: "x", IsCustom: true, SortOrder: 9},
		{APIName: "y", IsCustom: true, SortOrder: 1},
		{APIName: "z", IsCustom: true, SortOrder: 4},
	}
	layout := &Layout{Sections: []LayoutSection{
		{Title: "One", Fields: []string{"z", "x"}},
		{Title: "Two", Fields: []string{"x", "y"}}, // "x" repeated
	}}

	got := ResolveOrder(nil, custom, layout)

	assert.Equal(t, []string{"z", "x", "y"}, names(got))
}

func TestResolveOrder_LayoutReferencingDeletedField(t *testing.T) {
	custom := []FieldDescriptor{{APIName: "alive", IsCustom: true}}
	layout := &Layout{Sections: []LayoutSection{
		{Fields: []string{"ghost", "alive"}},
	}}

	got := ResolveOrder(nil, custom, layout)
	assert.Equal(t, []string{"alive"}, names(got))
}

func TestResolveOrder_EmptyLayoutFallsBackToSortOrder(t *testing.T) {
	custom := []FieldDescriptor{
		{APIName: "b", IsCustom: true, SortOrder: 2},
		{APIName: "a", IsCustom: true, SortOrder: 1},
	}

	got := ResolveOrder(nil, custom, &Layout{})
	assert.Equal(t, []string{"a", "b"}, names(got))
}

func TestResolveOrder_Idempotent(t *testing.T) {
	system := []FieldDescriptor{{APIName: "s", SortOrder: 0}}
	custom := []FieldDescriptor{
		{APIName: "c1", IsCustom: true, SortOrder: 3},
		{APIName: "c2", IsCustom: true, SortOrder: 3},
	}
	layout := &Layout{Sections: []LayoutSection{{Fields: []string{"c2"}}}}

	first := names(ResolveOrder(system, custom, layout))
	second := names(ResolveOrder(system, custom, layout))
	assert.Equal(t, first, second)
}
