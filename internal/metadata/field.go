// Package metadata defines the canonical field model for all CRM modules
// (leads, contacts, accounts, deals, activities) and the pure resolvers that
// derive a renderable field list from it: normalization, ordering, role
// visibility, layout/form overrides.
//
// Descriptors are authored out-of-band (admin metadata manager) and consumed
// read-only here. The engine never mutates metadata.
package metadata

// FieldType defines the input/data type of a field.
type FieldType string

const (
	TypeText       FieldType = "text"
	TypeTextarea   FieldType = "textarea"
	TypeNumber     FieldType = "number"
	TypeCurrency   FieldType = "currency"
	TypePercent    FieldType = "percent"
	TypeDate       FieldType = "date"
	TypeDatetime   FieldType = "datetime"
	TypeEmail      FieldType = "email"
	TypePhone      FieldType = "phone"
	TypeURL        FieldType = "url"
	TypeBoolean    FieldType = "boolean"
	TypeSelect     FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
	TypeReference  FieldType = "reference"
	TypeLookup     FieldType = "lookup"
	TypeUserLookup FieldType = "user_lookup"
	TypeAutoNumber FieldType = "auto_number"
)

// IsValid reports whether t is one of the known field types.
func (t FieldType) IsValid() bool {
	switch t {
	case TypeText, TypeTextarea, TypeNumber, TypeCurrency, TypePercent,
		TypeDate, TypeDatetime, TypeEmail, TypePhone, TypeURL, TypeBoolean,
		TypeSelect, TypeMultiselect, TypeReference, TypeLookup,
		TypeUserLookup, TypeAutoNumber:
		return true
	}
	return false
}

// IsNumeric reports whether values of this type are coerced to numbers
// in the submission payload.
func (t FieldType) IsNumeric() bool {
	return t == TypeNumber || t == TypeCurrency || t == TypePercent
}

// IsReference reports whether this type resolves against another module.
func (t FieldType) IsReference() bool {
	return t == TypeReference || t == TypeLookup || t == TypeUserLookup
}

// Option is one choice of a select/multiselect field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// RuleOperator is a comparison operator of a conditional-required rule.
type RuleOperator string

const (
	OpEqual          RuleOperator = "eq"
	OpNotEqual       RuleOperator = "neq"
	OpIn             RuleOperator = "in"
	OpNotIn          RuleOperator = "nin"
	OpExists         RuleOperator = "exists"
	OpGreater        RuleOperator = "gt"
	OpLess           RuleOperator = "lt"
	OpGreaterOrEqual RuleOperator = "gte"
	OpLessOrEqual    RuleOperator = "lte"
)

// Rule is a single condition evaluated against sibling draft values.
// A field's dynamic "required" state is the AND of all its rules.
type Rule struct {
	Field    string       `json:"field"`
	Operator RuleOperator `json:"operator"`
	Value    any          `json:"value,omitempty"`
}

// NumberConfig bounds numeric field input.
type NumberConfig struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Precision *int     `json:"precision,omitempty"`
}

// Validation is the tenant-authored constraint bundle. Every constraint here
// is optional and, when malformed (bad regex, bad expression), is treated as
// "not enforceable" rather than surfaced to the user.
type Validation struct {
	Min                 *float64 `json:"min,omitempty"`
	Max                 *float64 `json:"max,omitempty"`
	Regex               string   `json:"regex,omitempty"`
	RegexMessage        string   `json:"regexMessage,omitempty"`
	ConditionalRequired []Rule   `json:"conditionalRequired,omitempty"`

	// Expression is an optional CEL expression over `value` and `draft`.
	// It must evaluate to bool; anything else means the constraint is skipped.
	Expression        string `json:"expression,omitempty"`
	ExpressionMessage string `json:"expressionMessage,omitempty"`
}

// ReferenceConfig identifies the foreign module of a reference/lookup field
// and which of its fields is shown as the label.
type ReferenceConfig struct {
	TargetModule string `json:"targetModule"`
	DisplayField string `json:"displayField"`
}

// FieldDescriptor is the canonical description of one record attribute.
//
// APIName is immutable once the field exists, and FieldType changes after
// creation are unsupported; the metadata update path rejects both.
type FieldDescriptor struct {
	APIName        string           `json:"apiName"`
	Label          string           `json:"label"`
	FieldType      FieldType        `json:"fieldType"`
	IsRequired     bool             `json:"isRequired"`
	IsCustom       bool             `json:"isCustom"`
	SortOrder      int              `json:"sortOrder"`
	VisibleToRoles []string         `json:"visibleToRoles,omitempty"`
	Options        []Option         `json:"options,omitempty"`
	NumberConfig   *NumberConfig    `json:"numberConfig,omitempty"`
	Validation     *Validation      `json:"validation,omitempty"`
	ReferenceConfig *ReferenceConfig `json:"referenceConfig,omitempty"`
	Placeholder    string           `json:"placeholder,omitempty"`
	HelpText       string           `json:"helpText,omitempty"`
	DefaultValue   any              `json:"defaultValue,omitempty"`

	// Hidden is set only by form mapping projection. A hidden field is
	// seeded server-side (its default reaches the submitted record) but is
	// never rendered and never accepts caller input.
	Hidden bool `json:"-"`
}

// ConditionalRules returns the conditional-required rules, if any.
func (f FieldDescriptor) ConditionalRules() []Rule {
	if f.Validation == nil {
		return nil
	}
	return f.Validation.ConditionalRequired
}

// HasOption reports whether value is one of the field's options.
// Fields without options accept any value.
func (f FieldDescriptor) HasOption(value string) bool {
	if len(f.Options) == 0 {
		return true
	}
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}
