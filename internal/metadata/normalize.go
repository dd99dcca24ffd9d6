package metadata

// RawField is a heterogeneous field descriptor as it arrives from either the
// legacy static config or the tenant metadata service. Both shapes are
// decoded into this single struct; Normalize maps it onto FieldDescriptor.
//
// Legacy shape:            {name, type, isRequired, options}
// Metadata-service shape:  {apiName, fieldType, isRequired, ...}
type RawField struct {
	// Metadata-service keys.
	APIName   string `json:"apiName"`
	FieldType string `json:"fieldType"`

	// Legacy keys.
	Name string `json:"name"`
	Type string `json:"type"`

	Label          string           `json:"label"`
	IsRequired     bool             `json:"isRequired"`
	SortOrder      int              `json:"sortOrder"`
	VisibleToRoles []string         `json:"visibleToRoles"`
	Options        []any            `json:"options"`
	NumberConfig   *NumberConfig    `json:"numberConfig"`
	Validation     *Validation      `json:"validation"`
	ReferenceConfig *ReferenceConfig `json:"referenceConfig"`
	LookupConfig   *ReferenceConfig `json:"lookupConfig"`
	Placeholder    string           `json:"placeholder"`
	HelpText       string           `json:"helpText"`
	DefaultValue   any              `json:"defaultValue"`
}

// Normalize turns a heterogeneous field descriptor into the canonical shape.
// Pure: no network, no validation side effects.
func Normalize(raw RawField, isCustom bool) FieldDescriptor {
	f := FieldDescriptor{
		APIName:        raw.APIName,
		Label:          raw.Label,
		FieldType:      FieldType(raw.FieldType),
		IsRequired:     raw.IsRequired,
		IsCustom:       isCustom,
		SortOrder:      raw.SortOrder,
		VisibleToRoles: raw.VisibleToRoles,
		NumberConfig:   raw.NumberConfig,
		Validation:     raw.Validation,
		Placeholder:    raw.Placeholder,
		HelpText:       raw.HelpText,
		DefaultValue:   raw.DefaultValue,
	}

	// Legacy fallbacks.
	if f.APIName == "" {
		f.APIName = raw.Name
	}
	if f.FieldType == "" {
		f.FieldType = FieldType(raw.Type)
	}
	if f.Label == "" {
		f.Label = f.APIName
	}

	// Unknown or omitted field type defaults to text.
	if !f.FieldType.IsValid() {
		f.FieldType = TypeText
	}

	// referenceConfig wins over legacy lookupConfig when both present.
	f.ReferenceConfig = raw.ReferenceConfig
	if f.ReferenceConfig == nil {
		f.ReferenceConfig = raw.LookupConfig
	}

	f.Options = NormalizeOptions(raw.Options)
	return f
}

// NormalizeOptions maps heterogeneous option shapes onto []Option.
// A plain string "Foo" becomes {Foo, Foo}; an object keeps explicit
// value/label, falling back value -> id -> label -> "" per missing property.
func NormalizeOptions(raw []any) []Option {
	if len(raw) == 0 {
		return nil
	}
	opts := make([]Option, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			opts = append(opts, Option{Value: v, Label: v})
		case Option:
			opts = append(opts, v)
		case map[string]any:
			opt := Option{
				Value: firstString(v, "value", "id", "label"),
				Label: firstString(v, "label"),
			}
			if opt.Label == "" {
				opt.Label = opt.Value
			}
			opts = append(opts, opt)
		}
		// Anything else (numbers, nil) is dropped: not a representable option.
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
