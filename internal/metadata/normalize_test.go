package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_MetadataServiceShape(t *testing.T) {
	raw := RawField{
		APIName:    "budget",
		FieldType:  "currency",
		Label:      "Budget",
		IsRequired: true,
		SortOrder:  3,
	}

	f := Normalize(raw, true)

	assert.Equal(t, "budget", f.APIName)
	assert.Equal(t, TypeCurrency, f.FieldType)
	assert.Equal(t, "Budget", f.Label)
	assert.True(t, f.IsRequired)
	assert.True(t, f.IsCustom)
	assert.Equal(t, 3, f.SortOrder)
}

func TestNormalize_LegacyShape(t *testing.T) {
	raw := RawField{
		Name: "status",
		Type: "select",
	}

	f := Normalize(raw, false)

	assert.Equal(t, "status", f.APIName)
	assert.Equal(t, TypeSelect, f.FieldType)
	assert.False(t, f.IsCustom)
	// Label falls back to apiName when absent.
	assert.Equal(t, "status", f.Label)
}

func TestNormalize_UnknownTypeDefaultsToText(t *testing.T) {
	f := Normalize(RawField{APIName: "x", FieldType: "hologram"}, true)
	assert.Equal(t, TypeText, f.FieldType)

	f = Normalize(RawField{APIName: "y"}, true)
	assert.Equal(t, TypeText, f.FieldType)
}

func TestNormalize_LookupConfigFallback(t *testing.T) {
	lookup := &ReferenceConfig{TargetModule: "accounts", DisplayField: "name"}

	f := Normalize(RawField{APIName: "acct", FieldType: "lookup", LookupConfig: lookup}, true)
	assert.Equal(t, lookup, f.ReferenceConfig)

	ref := &ReferenceConfig{TargetModule: "deals", DisplayField: "name"}
	f = Normalize(RawField{APIName: "deal", FieldType: "reference", ReferenceConfig: ref, LookupConfig: lookup}, true)
	assert.Equal(t, ref, f.ReferenceConfig)
}

func TestNormalizeOptions(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		want []Option
	}{
		{
			name: "plain strings",
			in:   []any{"Hot", "Cold"},
			want: []Option{{Value: "Hot", Label: "Hot"}, {Value: "Cold", Label: "Cold"}},
		},
		{
			name: "explicit objects",
			in:   []any{map[string]any{"value": "a", "label": "Alpha"}},
			want: []Option{{Value: "a", Label: "Alpha"}},
		},
		{
			name: "value falls back to id then label",
			in: []any{
				map[string]any{"id": "42", "label": "Answer"},
				map[string]any{"label": "OnlyLabel"},
			},
			want: []Option{{Value: "42", Label: "Answer"}, {Value: "OnlyLabel", Label: "OnlyLabel"}},
		},
		{
			name: "label falls back to value",
			in:   []any{map[string]any{"value": "raw"}},
			want: []Option{{Value: "raw", Label: "raw"}},
		},
		{
			name: "empty object yields empty option",
			in:   []any{map[string]any{}},
			want: []Option{{Value: "", Label: ""}},
		},
		{
			name: "nil input",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeOptions(tt.in))
		})
	}
}
