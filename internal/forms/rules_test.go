package forms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"crmforge/internal/metadata"
)

func condField(rules ...metadata.Rule) metadata.FieldDescriptor {
	return metadata.FieldDescriptor{
		APIName:    "account",
		Validation: &metadata.Validation{ConditionalRequired: rules},
	}
}

func TestIsConditionallyRequired_NoRules(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsConditionallyRequired(ctx, metadata.FieldDescriptor{}, map[string]any{"x": 1}))
	assert.False(t, IsConditionallyRequired(ctx, condField(), nil))
}

func TestIsConditionallyRequired_Eq(t *testing.T) {
	ctx := context.Background()
	field := condField(metadata.Rule{Field: "accountMode", Operator: metadata.OpEqual, Value: "existing"})

	assert.True(t, IsConditionallyRequired(ctx, field, map[string]any{"accountMode": "existing"}))
	assert.False(t, IsConditionallyRequired(ctx, field, map[string]any{"accountMode": "create"}))
	assert.False(t, IsConditionallyRequired(ctx, field, map[string]any{}))
}

func TestIsConditionallyRequired_AndShortCircuit(t *testing.T) {
	ctx := context.Background()
	field := condField(
		metadata.Rule{Field: "a", Operator: metadata.OpEqual, Value: "yes"},
		metadata.Rule{Field: "b", Operator: metadata.OpGreater, Value: 10},
	)

	assert.True(t, IsConditionallyRequired(ctx, field, map[string]any{"a": "yes", "b": 11}))
	assert.False(t, IsConditionallyRequired(ctx, field, map[string]any{"a": "no", "b": 11}))
	assert.False(t, IsConditionallyRequired(ctx, field, map[string]any{"a": "yes", "b": 10}))
}

func TestEvalRule_StrictEquality(t *testing.T) {
	ctx := context.Background()

	// Same-kind comparisons.
	assert.True(t, EvalRule(ctx, metadata.Rule{Field: "x", Operator: metadata.OpEqual, Value: "1"}, map[string]any{"x": "1"}))
	assert.True(t, EvalRule(ctx, metadata.Rule{Field: "x", Operator: metadata.OpEqual, Value: 1.0}, map[string]any{"x": 1}))
	assert.True(t, EvalRule(ctx, metadata.Rule{Field: "x", Operator: metadata.OpEqual, Value: true}, map[string]any{"x": true}))

	// Strict: a numeric string never equals a number.
	assert.False(t, EvalRule(ctx, metadata.Rule{Field: "x", Operator: metadata.OpEqual, Value: 1}, map[string]any{"x": "1"}))
	assert.True(t, EvalRule(ctx, metadata.Rule{Field: "x", Operator: metadata.OpNotEqual, Value: 1}, map[string]any{"x": "1"}))

	// nil equals only nil.
	assert.True(t, EvalRule(ctx, metadata.Rule{Field: "missing", Operator: metadata.OpEqual, Value: nil}, map[string]any{}))
	assert.False(t, EvalRule(ctx, metadata.Rule{Field: "x", Operator: metadata.OpEqual, Value: nil}, map[string]any{"x": ""}))
}

func TestEvalRule_InNin(t *testing.T) {
	ctx := context.Background()
	draft := map[string]any{"stage": "proposal"}

	in := metadata.Rule{Field: "stage", Operator: metadata.OpIn, Value: []any{"proposal", "negotiation"}}
	assert.True(t, EvalRule(ctx, in, draft))

	nin := metadata.Rule{Field: "stage", Operator: metadata.OpNotIn, Value: []any{"closed_won", "closed_lost"}}
	assert.True(t, EvalRule(ctx, nin, draft))

	// Malformed: non-array value fails closed, never panics.
	bad := metadata.Rule{Field: "stage", Operator: metadata.OpIn, Value: "proposal"}
	assert.False(t, EvalRule(ctx, bad, draft))
	badNin := metadata.Rule{Field: "stage", Operator: metadata.OpNotIn, Value: "proposal"}
	assert.False(t, EvalRule(ctx, badNin, draft))
}

func TestEvalRule_Exists(t *testing.T) {
	ctx := context.Background()
	rule := metadata.Rule{Field: "x", Operator: metadata.OpExists}

	assert.False(t, EvalRule(ctx, rule, map[string]any{}))
	assert.False(t, EvalRule(ctx, rule, map[string]any{"x": nil}))
	assert.False(t, EvalRule(ctx, rule, map[string]any{"x": ""}))

	assert.True(t, EvalRule(ctx, rule, map[string]any{"x": "v"}))
	assert.True(t, EvalRule(ctx, rule, map[string]any{"x": 0}))
	assert.True(t, EvalRule(ctx, rule, map[string]any{"x": false}))
	assert.True(t, EvalRule(ctx, rule, map[string]any{"x": []any{}})) // empty array still exists
}

func TestEvalRule_NumericComparisons(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		op    metadata.RuleOperator
		value any
		draft any
		want  bool
	}{
		{metadata.OpGreater, 10, 11, true},
		{metadata.OpGreater, 10, 10, false},
		{metadata.OpGreaterOrEqual, 10, 10, true},
		{metadata.OpLess, 10, 9, true},
		{metadata.OpLessOrEqual, 10, 11, false},
		// Coercion: numeric strings compare numerically.
		{metadata.OpGreater, "10", "11", true},
		// NaN-style input evaluates false.
		{metadata.OpGreater, 10, "abc", false},
		{metadata.OpLess, "abc", 10, false},
	}

	for _, tt := range tests {
		rule := metadata.Rule{Field: "n", Operator: tt.op, Value: tt.value}
		got := EvalRule(ctx, rule, map[string]any{"n": tt.draft})
		assert.Equal(t, tt.want, got, "op=%s value=%v draft=%v", tt.op, tt.value, tt.draft)
	}
}

func TestEvalRule_UnknownOperatorFailsClosed(t *testing.T) {
	ctx := context.Background()
	rule := metadata.Rule{Field: "x", Operator: "matches", Value: "y"}
	assert.False(t, EvalRule(ctx, rule, map[string]any{"x": "y"}))
}
