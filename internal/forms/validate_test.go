package forms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"crmforge/internal/metadata"
)

func newTestValidator() *Validator {
	exprs, err := NewExpressionCache()
	if err != nil {
		panic(err)
	}
	return NewValidator(NewTypeRegistry(), exprs)
}

func TestValidate_RequiredBeforeFormat(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	field := metadata.FieldDescriptor{
		APIName:    "email",
		Label:      "Email",
		FieldType:  metadata.TypeEmail,
		IsRequired: true,
	}

	// Empty and required: only the required message, never the format one.
	assert.Equal(t, "Email is required", v.Validate(ctx, field, "", nil))
	assert.Equal(t, "Email is required", v.Validate(ctx, field, nil, nil))

	// Non-empty but malformed: only the format message.
	assert.Equal(t, "Invalid email address", v.Validate(ctx, field, "not-an-email", nil))

	// Valid value passes.
	assert.Equal(t, "", v.Validate(ctx, field, "ada@example.com", nil))
}

func TestValidate_EmptyOptionalShortCircuits(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	field := metadata.FieldDescriptor{
		APIName:   "website",
		Label:     "Website",
		FieldType: metadata.TypeURL,
	}

	assert.Equal(t, "", v.Validate(ctx, field, "", nil))
	assert.Equal(t, "", v.Validate(ctx, field, nil, nil))
	assert.Equal(t, "Invalid URL", v.Validate(ctx, field, "not a url", nil))
}

func TestValidate_ZeroAndFalseAreNotEmpty(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()

	amount := metadata.FieldDescriptor{
		APIName:    "amount",
		Label:      "Amount",
		FieldType:  metadata.TypeNumber,
		IsRequired: true,
	}
	assert.Equal(t, "", v.Validate(ctx, amount, 0, nil))

	flag := metadata.FieldDescriptor{
		APIName:    "subscribed",
		Label:      "Subscribed",
		FieldType:  metadata.TypeBoolean,
		IsRequired: true,
	}
	assert.Equal(t, "", v.Validate(ctx, flag, false, nil))
}

func TestValidate_ConditionallyRequired(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	field := metadata.FieldDescriptor{
		APIName:   "account",
		Label:     "Account",
		FieldType: metadata.TypeReference,
		Validation: &metadata.Validation{
			ConditionalRequired: []metadata.Rule{
				{Field: "accountMode", Operator: metadata.OpEqual, Value: "existing"},
			},
		},
	}

	got := v.Validate(ctx, field, "", map[string]any{"accountMode": "existing"})
	assert.Equal(t, "Account is required", got)

	assert.Equal(t, "", v.Validate(ctx, field, "", map[string]any{"accountMode": "create"}))
}

func TestValidate_NumberConfigBounds(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	min, max := 1.0, 100.0
	field := metadata.FieldDescriptor{
		APIName:      "probability",
		Label:        "Probability",
		FieldType:    metadata.TypePercent,
		NumberConfig: &metadata.NumberConfig{Min: &min, Max: &max},
	}

	assert.Equal(t, "Must be at least 1", v.Validate(ctx, field, 0.5, nil))
	assert.Equal(t, "Must be at most 100", v.Validate(ctx, field, 150, nil))
	assert.Equal(t, "", v.Validate(ctx, field, 42, nil))
	assert.Equal(t, "Must be a number", v.Validate(ctx, field, "lots", nil))
	// Numeric strings are accepted; coercion happens at payload build.
	assert.Equal(t, "", v.Validate(ctx, field, "42", nil))
}

func TestValidate_SelectMembership(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	field := metadata.FieldDescriptor{
		APIName:   "stage",
		Label:     "Stage",
		FieldType: metadata.TypeSelect,
		Options: []metadata.Option{
			{Value: "new", Label: "New"},
			{Value: "won", Label: "Won"},
		},
	}

	assert.Equal(t, "", v.Validate(ctx, field, "new", nil))
	assert.Equal(t, `"bogus" is not a valid option`, v.Validate(ctx, field, "bogus", nil))
}

func TestValidate_MultiselectItems(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	field := metadata.FieldDescriptor{
		APIName:   "tags",
		Label:     "Tags",
		FieldType: metadata.TypeMultiselect,
		Options: []metadata.Option{
			{Value: "hot", Label: "Hot"},
			{Value: "cold", Label: "Cold"},
		},
	}

	assert.Equal(t, "", v.Validate(ctx, field, []any{"hot", "cold"}, nil))
	assert.Equal(t, `"warm" is not a valid option`, v.Validate(ctx, field, []any{"hot", "warm"}, nil))
	// Empty slice is empty, not invalid.
	assert.Equal(t, "", v.Validate(ctx, field, []any{}, nil))
}

func TestValidateBundle_MinMaxRegex(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	min := 3.0
	field := metadata.FieldDescriptor{
		APIName:   "score",
		Label:     "Score",
		FieldType: metadata.TypeNumber,
		Validation: &metadata.Validation{
			Min: &min,
		},
	}
	assert.Equal(t, "Must be at least 3", v.Validate(ctx, field, 2, nil))
	assert.Equal(t, "", v.Validate(ctx, field, 3, nil))

	code := metadata.FieldDescriptor{
		APIName:   "sku",
		Label:     "SKU",
		FieldType: metadata.TypeText,
		Validation: &metadata.Validation{
			Regex:        `^[A-Z]{3}-\d{4}$`,
			RegexMessage: "SKU must look like ABC-1234",
		},
	}
	assert.Equal(t, "SKU must look like ABC-1234", v.Validate(ctx, code, "nope", nil))
	assert.Equal(t, "", v.Validate(ctx, code, "ABC-1234", nil))
}

func TestValidateBundle_BrokenRegexSkipped(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	field := metadata.FieldDescriptor{
		APIName:   "code",
		Label:     "Code",
		FieldType: metadata.TypeText,
		Validation: &metadata.Validation{
			Regex: `[unclosed`,
		},
	}

	// A broken tenant pattern never blocks input.
	assert.Equal(t, "", v.Validate(ctx, field, "anything", nil))
}

func TestValidateBundle_RegexDefaultMessage(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	field := metadata.FieldDescriptor{
		APIName:   "zip",
		Label:     "ZIP",
		FieldType: metadata.TypeText,
		Validation: &metadata.Validation{
			Regex: `^\d{5}$`,
		},
	}
	assert.Equal(t, "Invalid format", v.Validate(ctx, field, "abc", nil))
}

func TestValidateAll_SkipsInvisibleFields(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	fields := []metadata.FieldDescriptor{
		{APIName: "name", Label: "Name", FieldType: metadata.TypeText, IsRequired: true},
		{
			APIName:        "internalScore",
			Label:          "Internal Score",
			FieldType:      metadata.TypeNumber,
			IsRequired:     true,
			VisibleToRoles: []string{"admin"},
		},
	}

	// The admin-only field is neither validated nor required for marketing.
	errs := v.ValidateAll(ctx, fields, map[string]any{"name": "Ada"}, "marketing")
	assert.Empty(t, errs)

	// For admin it is required.
	errs = v.ValidateAll(ctx, fields, map[string]any{"name": "Ada"}, "admin")
	assert.Equal(t, map[string]string{"internalScore": "Internal Score is required"}, errs)
}

func TestValidateAll_CollectsAllFailures(t *testing.T) {
	ctx := context.Background()
	v := newTestValidator()
	fields := []metadata.FieldDescriptor{
		{APIName: "name", Label: "Name", FieldType: metadata.TypeText, IsRequired: true},
		{APIName: "email", Label: "Email", FieldType: metadata.TypeEmail},
	}
	draft := map[string]any{"email": "broken"}

	errs := v.ValidateAll(ctx, fields, draft, "")
	assert.Equal(t, map[string]string{
		"name":  "Name is required",
		"email": "Invalid email address",
	}, errs)
}
