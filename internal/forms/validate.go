package forms

import (
	"context"
	"fmt"
	"regexp"

	"crmforge/internal/metadata"
	"crmforge/pkg/logger"
)

// Validator checks one candidate value against one field descriptor.
// Results are data, not errors: "" means valid, anything else is the
// user-facing message for that field. First failure wins - a field never
// reports two messages at once.
type Validator struct {
	types *TypeRegistry
	exprs *ExpressionCache
}

// NewValidator creates a validator over the given type registry.
// exprs may be nil, in which case expression constraints are skipped.
func NewValidator(types *TypeRegistry, exprs *ExpressionCache) *Validator {
	return &Validator{types: types, exprs: exprs}
}

// Validate runs the check sequence for a single field. The order is a
// contract:
//  1. required (static or conditional) against an empty value;
//  2. empty + not required short-circuits with no error;
//  3. type-specific format check (registry dispatch);
//  4. generic validation bundle (min/max, regex, expression), only reached
//     when no earlier check failed.
func (v *Validator) Validate(ctx context.Context, field metadata.FieldDescriptor, value any, draft map[string]any) string {
	empty := metadata.IsEmptyValue(value)
	required := field.IsRequired || IsConditionallyRequired(ctx, field, draft)

	if empty {
		if required {
			return fmt.Sprintf("%s is required", field.Label)
		}
		return ""
	}

	if msg := v.types.Lookup(field.FieldType).Validate(field, value); msg != "" {
		return msg
	}

	return v.validateBundle(ctx, field, value, draft)
}

// validateBundle applies the tenant-authored constraint bundle. Malformed
// constraints (bad regex, bad expression) are treated as not enforceable:
// logged and skipped, never raised.
func (v *Validator) validateBundle(ctx context.Context, field metadata.FieldDescriptor, value any, draft map[string]any) string {
	rules := field.Validation
	if rules == nil {
		return ""
	}

	if rules.Min != nil || rules.Max != nil {
		if f, ok := toFloat(value); ok {
			if rules.Min != nil && f < *rules.Min {
				return fmt.Sprintf("Must be at least %s", formatNumber(*rules.Min))
			}
			if rules.Max != nil && f > *rules.Max {
				return fmt.Sprintf("Must be at most %s", formatNumber(*rules.Max))
			}
		}
	}

	if rules.Regex != "" {
		if s, ok := value.(string); ok {
			re, err := regexp.Compile(rules.Regex)
			if err != nil {
				logger.Warn(ctx, "tenant regex does not compile",
					"apiName", field.APIName, "pattern", rules.Regex, "error", err)
			} else if !re.MatchString(s) {
				if rules.RegexMessage != "" {
					return rules.RegexMessage
				}
				return "Invalid format"
			}
		}
	}

	if rules.Expression != "" {
		passed, enforceable := v.exprs.Eval(ctx, rules.Expression, value, draft)
		if enforceable && !passed {
			if rules.ExpressionMessage != "" {
				return rules.ExpressionMessage
			}
			return "Invalid value"
		}
	}

	return ""
}

// ValidateAll validates every role-visible field of an ordered field list
// against the draft. Invisible fields are never validated and never required.
// The returned map is the form's error map; an empty map means the draft is
// submittable.
func (v *Validator) ValidateAll(ctx context.Context, fields []metadata.FieldDescriptor, draft map[string]any, role string) map[string]string {
	errs := make(map[string]string)
	for _, field := range fields {
		if !metadata.IsVisible(field, role) {
			continue
		}
		if msg := v.Validate(ctx, field, draft[field.APIName], draft); msg != "" {
			errs[field.APIName] = msg
		}
	}
	return errs
}
