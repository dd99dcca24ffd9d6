package metadata

import "sort"

// FormMapping is a per-field override used by public/embeddable forms.
// Pointer fields override only when set; nil keeps the module default.
type FormMapping struct {
	FieldAPIName string  `json:"fieldApiName"`
	Label        *string `json:"label,omitempty"`
	IsRequired   *bool   `json:"isRequired,omitempty"`
	Placeholder  *string `json:"placeholder,omitempty"`
	HelpText     *string `json:"helpText,omitempty"`
	SortOrder    int     `json:"sortOrder"`
	IsHidden     bool    `json:"isHidden"`
	DefaultValue any     `json:"defaultValue,omitempty"`
}

// FormSettings carries form presentation options.
type FormSettings struct {
	SubmitLabel    string `json:"submitLabel,omitempty"`
	SuccessMessage string `json:"successMessage,omitempty"`
	Theme          string `json:"theme,omitempty"`
}

// FormDefinition is a named, possibly public-facing, configurable subset of a
// module's fields with its own presentation settings.
type FormDefinition struct {
	ID       string        `json:"id"`
	Module   string        `json:"module"`
	Name     string        `json:"name"`
	IsPublic bool          `json:"isPublic"`
	Mappings []FormMapping `json:"mappings"`
	Settings FormSettings  `json:"settings"`
}

// ApplyMappings projects a module's resolved field list through the form's
// mappings: overrides applied, the result ordered by mapping SortOrder.
// Fields without a mapping are excluded entirely. Hidden mappings stay in
// the projection with Hidden set: they carry defaults into the submission
// but must not be rendered or caller-writable (see RenderableFields).
func (d FormDefinition) ApplyMappings(fields []FieldDescriptor) []FieldDescriptor {
	byName := make(map[string]FieldDescriptor, len(fields))
	for _, f := range fields {
		byName[f.APIName] = f
	}

	type mapped struct {
		field FieldDescriptor
		order int
	}
	out := make([]mapped, 0, len(d.Mappings))
	for _, m := range d.Mappings {
		f, ok := byName[m.FieldAPIName]
		if !ok {
			continue
		}
		f.Hidden = m.IsHidden
		if m.Label != nil {
			f.Label = *m.Label
		}
		if m.IsRequired != nil {
			f.IsRequired = *m.IsRequired
		}
		if m.Placeholder != nil {
			f.Placeholder = *m.Placeholder
		}
		if m.HelpText != nil {
			f.HelpText = *m.HelpText
		}
		if m.DefaultValue != nil {
			f.DefaultValue = m.DefaultValue
		}
		out = append(out, mapped{field: f, order: m.SortOrder})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].order < out[j].order })

	result := make([]FieldDescriptor, len(out))
	for i, m := range out {
		result[i] = m.field
	}
	return result
}

// RenderableFields strips mapping-hidden fields from a projected list.
// The server keeps hidden fields for default seeding; clients never see them.
func RenderableFields(fields []FieldDescriptor) []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(fields))
	for _, f := range fields {
		if !f.Hidden {
			out = append(out, f)
		}
	}
	return out
}
