package forms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmforge/internal/metadata"
)

func TestExpressionCache_Eval(t *testing.T) {
	ctx := context.Background()
	cache, err := NewExpressionCache()
	require.NoError(t, err)

	passed, enforceable := cache.Eval(ctx, `value > 100.0`, 150.0, nil)
	assert.True(t, enforceable)
	assert.True(t, passed)

	passed, enforceable = cache.Eval(ctx, `value > 100.0`, 50.0, nil)
	assert.True(t, enforceable)
	assert.False(t, passed)
}

func TestExpressionCache_DraftVariable(t *testing.T) {
	ctx := context.Background()
	cache, err := NewExpressionCache()
	require.NoError(t, err)

	expr := `draft["stage"] == "closed_won" ? value > 0.0 : true`
	passed, enforceable := cache.Eval(ctx, expr, 0.0, map[string]any{"stage": "closed_won"})
	assert.True(t, enforceable)
	assert.False(t, passed)

	passed, enforceable = cache.Eval(ctx, expr, 0.0, map[string]any{"stage": "proposal"})
	assert.True(t, enforceable)
	assert.True(t, passed)
}

func TestExpressionCache_MalformedNotEnforceable(t *testing.T) {
	ctx := context.Background()
	cache, err := NewExpressionCache()
	require.NoError(t, err)

	passed, enforceable := cache.Eval(ctx, `value >>> nonsense`, 1, nil)
	assert.False(t, enforceable)
	assert.True(t, passed)

	// Second lookup hits the broken-expression cache, same answer.
	passed, enforceable = cache.Eval(ctx, `value >>> nonsense`, 1, nil)
	assert.False(t, enforceable)
	assert.True(t, passed)
}

func TestExpressionCache_NonBoolNotEnforceable(t *testing.T) {
	ctx := context.Background()
	cache, err := NewExpressionCache()
	require.NoError(t, err)

	_, enforceable := cache.Eval(ctx, `"a string"`, 1, nil)
	assert.False(t, enforceable)
}

func TestExpressionCache_NilSafe(t *testing.T) {
	var cache *ExpressionCache
	passed, enforceable := cache.Eval(context.Background(), `value > 0`, 1, nil)
	assert.True(t, passed)
	assert.False(t, enforceable)
}

func TestValidate_ExpressionConstraint(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	field := metadata.FieldDescriptor{
		APIName:   "discount",
		Label:     "Discount",
		FieldType: metadata.TypeNumber,
		Validation: &metadata.Validation{
			Expression:        `value <= 50.0`,
			ExpressionMessage: "Discount cannot exceed 50%",
		},
	}

	assert.Equal(t, "Discount cannot exceed 50%", v.Validate(ctx, field, 60.0, nil))
	assert.Equal(t, "", v.Validate(ctx, field, 40.0, nil))
}
