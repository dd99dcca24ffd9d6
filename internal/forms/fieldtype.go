package forms

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"crmforge/internal/metadata"
)

// Pre-compiled format patterns.
var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRE = regexp.MustCompile(`^\+?[0-9()\s-]{7,20}$`)
)

// Behavior describes how one field type participates in the form engine.
// New field types are added by registering a Behavior; nothing else in the
// validator or session dispatches on the type directly.
type Behavior struct {
	// InputShape names the input widget the presentation layer should render.
	InputShape string

	// EmptyValue returns the type-appropriate empty draft value.
	EmptyValue func() any

	// NormalizeValue coerces a draft value into its payload representation
	// (e.g. numeric strings to numbers). Returns the value unchanged when no
	// coercion applies.
	NormalizeValue func(field metadata.FieldDescriptor, value any) any

	// Validate runs the type-specific format check on a non-empty value.
	// Returns "" when valid, otherwise a user-facing message.
	Validate func(field metadata.FieldDescriptor, value any) string
}

// TypeRegistry maps field types to their behaviors.
type TypeRegistry struct {
	behaviors map[metadata.FieldType]Behavior
}

// NewTypeRegistry returns a registry populated with the built-in field types.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{behaviors: make(map[metadata.FieldType]Behavior)}

	text := Behavior{
		InputShape:     "text",
		EmptyValue:     emptyString,
		NormalizeValue: passthrough,
		Validate:       noCheck,
	}
	r.Register(metadata.TypeText, text)

	textarea := text
	textarea.InputShape = "textarea"
	r.Register(metadata.TypeTextarea, textarea)

	r.Register(metadata.TypeEmail, Behavior{
		InputShape:     "email",
		EmptyValue:     emptyString,
		NormalizeValue: passthrough,
		Validate: func(_ metadata.FieldDescriptor, value any) string {
			if s, ok := value.(string); !ok || !emailRE.MatchString(s) {
				return "Invalid email address"
			}
			return ""
		},
	})

	r.Register(metadata.TypePhone, Behavior{
		InputShape:     "tel",
		EmptyValue:     emptyString,
		NormalizeValue: passthrough,
		Validate: func(_ metadata.FieldDescriptor, value any) string {
			if s, ok := value.(string); !ok || !phoneRE.MatchString(s) {
				return "Invalid phone number"
			}
			return ""
		},
	})

	r.Register(metadata.TypeURL, Behavior{
		InputShape:     "url",
		EmptyValue:     emptyString,
		NormalizeValue: passthrough,
		Validate: func(_ metadata.FieldDescriptor, value any) string {
			s, ok := value.(string)
			if !ok {
				return "Invalid URL"
			}
			u, err := url.Parse(s)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return "Invalid URL"
			}
			return ""
		},
	})

	numeric := Behavior{
		InputShape:     "number",
		EmptyValue:     emptyString,
		NormalizeValue: normalizeNumeric,
		Validate:       validateNumeric,
	}
	r.Register(metadata.TypeNumber, numeric)

	currency := numeric
	currency.InputShape = "currency"
	r.Register(metadata.TypeCurrency, currency)

	percent := numeric
	percent.InputShape = "percent"
	r.Register(metadata.TypePercent, percent)

	r.Register(metadata.TypeDate, Behavior{
		InputShape:     "date",
		EmptyValue:     emptyString,
		NormalizeValue: passthrough,
		Validate:       noCheck,
	})
	r.Register(metadata.TypeDatetime, Behavior{
		InputShape:     "datetime",
		EmptyValue:     emptyString,
		NormalizeValue: passthrough,
		Validate:       noCheck,
	})

	r.Register(metadata.TypeBoolean, Behavior{
		InputShape:     "checkbox",
		EmptyValue:     func() any { return false },
		NormalizeValue: passthrough,
		Validate:       noCheck,
	})

	r.Register(metadata.TypeSelect, Behavior{
		InputShape:     "select",
		EmptyValue:     emptyString,
		NormalizeValue: passthrough,
		Validate:       validateOption,
	})

	r.Register(metadata.TypeMultiselect, Behavior{
		InputShape:     "multiselect",
		EmptyValue:     func() any { return []any{} },
		NormalizeValue: passthrough,
		Validate: func(field metadata.FieldDescriptor, value any) string {
			items, ok := asSlice(value)
			if !ok {
				return "Invalid selection"
			}
			for _, item := range items {
				if msg := validateOption(field, item); msg != "" {
					return msg
				}
			}
			return ""
		},
	})

	reference := Behavior{
		InputShape:     "reference",
		EmptyValue:     emptyString,
		NormalizeValue: passthrough,
		Validate:       noCheck,
	}
	r.Register(metadata.TypeReference, reference)

	lookup := reference
	lookup.InputShape = "lookup"
	r.Register(metadata.TypeLookup, lookup)

	userLookup := reference
	userLookup.InputShape = "user_lookup"
	r.Register(metadata.TypeUserLookup, userLookup)

	r.Register(metadata.TypeAutoNumber, Behavior{
		InputShape:     "readonly",
		EmptyValue:     emptyString,
		NormalizeValue: passthrough,
		Validate:       noCheck,
	})

	return r
}

// Register adds or replaces a behavior.
func (r *TypeRegistry) Register(t metadata.FieldType, b Behavior) {
	r.behaviors[t] = b
}

// Lookup returns the behavior for t, falling back to text for unknown types
// (the normalizer already maps unknown types to text, this is a second net).
func (r *TypeRegistry) Lookup(t metadata.FieldType) Behavior {
	if b, ok := r.behaviors[t]; ok {
		return b
	}
	return r.behaviors[metadata.TypeText]
}

func emptyString() any { return "" }

func passthrough(_ metadata.FieldDescriptor, value any) any { return value }

func noCheck(metadata.FieldDescriptor, any) string { return "" }

func validateOption(field metadata.FieldDescriptor, value any) string {
	s, ok := value.(string)
	if !ok {
		return "Invalid option"
	}
	if !field.HasOption(s) {
		return fmt.Sprintf("%q is not a valid option", s)
	}
	return ""
}

func validateNumeric(field metadata.FieldDescriptor, value any) string {
	f, ok := toFloat(value)
	if !ok {
		return "Must be a number"
	}
	if cfg := field.NumberConfig; cfg != nil {
		if cfg.Min != nil && f < *cfg.Min {
			return fmt.Sprintf("Must be at least %s", formatNumber(*cfg.Min))
		}
		if cfg.Max != nil && f > *cfg.Max {
			return fmt.Sprintf("Must be at most %s", formatNumber(*cfg.Max))
		}
	}
	return ""
}

// normalizeNumeric coerces string input to a real number for the submission
// payload. Currency goes through decimal to avoid binary float drift on
// monetary input; precision, when configured, rounds the result.
func normalizeNumeric(field metadata.FieldDescriptor, value any) any {
	var d decimal.Decimal
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return value
		}
		parsed, err := decimal.NewFromString(trimmed)
		if err != nil {
			return value // validator already rejected it; keep as-is
		}
		d = parsed
	case float64:
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	default:
		return value
	}

	if cfg := field.NumberConfig; cfg != nil && cfg.Precision != nil {
		d = d.Round(int32(*cfg.Precision))
	}
	return d.InexactFloat64()
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
