// Package forms implements the dynamic form engine: conditional requirement
// rules, per-field validation, the field-type behavior registry and the
// stateful form session that orchestrates one create/edit interaction.
package forms

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"crmforge/internal/metadata"
	"crmforge/pkg/logger"
)

// IsConditionallyRequired evaluates a field's conditional rules against the
// current draft value set. No rules means never conditionally required;
// otherwise the result is the AND of all rules, short-circuiting on the
// first failure.
func IsConditionallyRequired(ctx context.Context, field metadata.FieldDescriptor, draft map[string]any) bool {
	rules := field.ConditionalRules()
	if len(rules) == 0 {
		return false
	}
	for _, rule := range rules {
		if !EvalRule(ctx, rule, draft) {
			return false
		}
	}
	return true
}

// EvalRule evaluates one rule against the draft. Rules fail closed: a
// malformed rule (non-array in/nin value, unknown operator) evaluates to
// false and is logged for operators, never raised to the user.
func EvalRule(ctx context.Context, rule metadata.Rule, draft map[string]any) bool {
	current := draft[rule.Field]

	switch rule.Operator {
	case metadata.OpEqual:
		return strictEqual(current, rule.Value)
	case metadata.OpNotEqual:
		return !strictEqual(current, rule.Value)
	case metadata.OpIn, metadata.OpNotIn:
		list, ok := asSlice(rule.Value)
		if !ok {
			logger.Warn(ctx, "conditional rule value is not an array",
				"field", rule.Field, "operator", string(rule.Operator))
			return false
		}
		member := false
		for _, item := range list {
			if strictEqual(current, item) {
				member = true
				break
			}
		}
		if rule.Operator == metadata.OpIn {
			return member
		}
		return !member
	case metadata.OpExists:
		// exists is true for anything but nil and the empty string;
		// an empty array still exists.
		if current == nil {
			return false
		}
		s, isString := current.(string)
		return !isString || s != ""
	case metadata.OpGreater, metadata.OpLess, metadata.OpGreaterOrEqual, metadata.OpLessOrEqual:
		left, okL := toFloat(current)
		right, okR := toFloat(rule.Value)
		if !okL || !okR {
			return false
		}
		switch rule.Operator {
		case metadata.OpGreater:
			return left > right
		case metadata.OpLess:
			return left < right
		case metadata.OpGreaterOrEqual:
			return left >= right
		default:
			return left <= right
		}
	default:
		logger.Warn(ctx, "unknown conditional rule operator",
			"field", rule.Field, "operator", string(rule.Operator))
		return false
	}
}

// strictEqual applies strict equality: values of differing primitive kinds
// are never equal ("1" != 1). Numeric representations (float64, int,
// json.Number) compare numerically among themselves since they are the same
// JSON value decoded differently.
//
// The legacy renderer used loose equality here while the newer validation
// module was strict; this engine is uniformly strict.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if fa, aNum := numericValue(a); aNum {
		fb, bNum := numericValue(b)
		return bNum && fa == fb
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// numericValue reports whether v is a numeric value (not a numeric string).
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// toFloat coerces v to a finite float64 for ordered comparisons, mirroring
// JS Number() semantics: numeric strings parse, booleans map to 0/1,
// anything else (or NaN/Inf) fails the comparison.
func toFloat(v any) (float64, bool) {
	if f, ok := numericValue(v); ok {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	}
	return nil, false
}
