package forms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmforge/internal/core/apperror"
	"crmforge/internal/metadata"
)

func dealFields() []metadata.FieldDescriptor {
	return []metadata.FieldDescriptor{
		{APIName: "name", Label: "Deal Name", FieldType: metadata.TypeText, IsRequired: true},
		{APIName: "amount", Label: "Amount", FieldType: metadata.TypeCurrency},
		{APIName: "stage", Label: "Stage", FieldType: metadata.TypeSelect,
			Options: []metadata.Option{
				{Value: "new", Label: "New"},
				{Value: "won", Label: "Won"},
			},
			DefaultValue: "new",
		},
		{APIName: "contact", Label: "Contact", FieldType: metadata.TypeReference},
	}
}

func newTestSession(fields []metadata.FieldDescriptor, role string) *Session {
	types := NewTypeRegistry()
	return NewSession(SessionConfig{
		Module:    "deals",
		Fields:    fields,
		Role:      role,
		Validator: newTestValidator(),
		Types:     types,
	})
}

func TestSession_InitializeDefaults(t *testing.T) {
	s := newTestSession(dealFields(), "")
	values := s.Initialize(nil)

	assert.Equal(t, "", values["name"])
	assert.Equal(t, "", values["amount"])
	assert.Equal(t, "new", values["stage"]) // descriptor default wins over empty
	assert.Equal(t, "", values["contact"])
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_InitializeUnwrapsObjectValues(t *testing.T) {
	s := newTestSession(dealFields(), "")
	values := s.Initialize(map[string]any{
		"name":    "Acme renewal",
		"stage":   map[string]any{"_id": "won", "label": "Won"},
		"contact": map[string]any{"id": "c-42", "label": "Ada"},
	})

	assert.Equal(t, "won", values["stage"])
	assert.Equal(t, "c-42", values["contact"])

	// A no-op edit cycle keeps the unwrapped id intact.
	s.SetValue("contact", s.Value("contact"))
	assert.Equal(t, "c-42", s.Value("contact"))
}

func TestSession_InitializeUnwrapValuePriority(t *testing.T) {
	field := []metadata.FieldDescriptor{
		{APIName: "owner", Label: "Owner", FieldType: metadata.TypeUserLookup},
	}

	s := newTestSession(field, "")
	values := s.Initialize(map[string]any{
		"owner": map[string]any{"value": "u-1", "id": "u-2", "_id": "u-3"},
	})
	assert.Equal(t, "u-3", values["owner"]) // _id beats id beats value

	// Text fields are never unwrapped.
	text := []metadata.FieldDescriptor{
		{APIName: "notes", Label: "Notes", FieldType: metadata.TypeText},
	}
	s = newTestSession(text, "")
	obj := map[string]any{"_id": "x"}
	values = s.Initialize(map[string]any{"notes": obj})
	assert.Equal(t, obj, values["notes"])
}

func TestSession_SetValueClearsError(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(dealFields(), "")
	s.Initialize(nil)

	errs := s.ValidateAll(ctx)
	require.Equal(t, map[string]string{"name": "Deal Name is required"}, errs)

	s.SetValue("name", "Acme renewal")
	assert.Empty(t, s.Errors())
	assert.Equal(t, StateEditing, s.State())
}

func TestSession_SubmitRefusedOnValidationErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(dealFields(), "")
	s.Initialize(nil)

	called := false
	payload, err := s.Submit(ctx, func(context.Context, map[string]any) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.Nil(t, payload)
	assert.False(t, called, "callback must not run on validation failure")
	assert.Equal(t, StateIdle, s.State())

	fieldErrs := apperror.FieldErrors(err)
	assert.Equal(t, map[string]string{"name": "Deal Name is required"}, fieldErrs)
}

func TestSession_SubmitCoercesCurrency(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(dealFields(), "")
	s.Initialize(nil)
	s.SetValue("name", "Acme renewal")
	s.SetValue("amount", "1500")

	var got map[string]any
	payload, err := s.Submit(ctx, func(_ context.Context, p map[string]any) error {
		got = p
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, float64(1500), payload["amount"])
	assert.Equal(t, float64(1500), got["amount"])
	assert.Equal(t, StateSubmitted, s.State())
}

func TestSession_SubmitIsTerminal(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(dealFields(), "")
	s.Initialize(nil)
	s.SetValue("name", "Acme renewal")

	_, err := s.Submit(ctx, func(context.Context, map[string]any) error { return nil })
	require.NoError(t, err)

	// Further edits are ignored and a second submit is refused.
	s.SetValue("name", "changed")
	assert.Equal(t, "Acme renewal", s.Value("name"))

	_, err = s.Submit(ctx, func(context.Context, map[string]any) error { return nil })
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSessionSubmitted, appErr.Code)
}

func TestSession_SubmitCallbackErrorPreservesDraft(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(dealFields(), "")
	s.Initialize(nil)
	s.SetValue("name", "Acme renewal")
	s.SetValue("amount", "1500")

	boom := errors.New("record store unavailable")
	_, err := s.Submit(ctx, func(context.Context, map[string]any) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, "Acme renewal", s.Value("name"))
	assert.Equal(t, "1500", s.Value("amount"))

	// Recoverable: the next submit succeeds.
	_, err = s.Submit(ctx, func(context.Context, map[string]any) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateSubmitted, s.State())
}

func TestSession_CloseIgnoresInFlightResult(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(dealFields(), "")
	s.Initialize(nil)
	s.SetValue("name", "Acme renewal")

	payload, err := s.Submit(ctx, func(context.Context, map[string]any) error {
		s.Close() // teardown races the store call
		return errors.New("too late to matter")
	})

	assert.NoError(t, err)
	assert.Nil(t, payload)
	assert.NotEqual(t, StateSubmitted, s.State())
}

func TestSession_PayloadContainsVisibleFieldsOnly(t *testing.T) {
	ctx := context.Background()
	fields := append(dealFields(), metadata.FieldDescriptor{
		APIName:        "internalScore",
		Label:          "Internal Score",
		FieldType:      metadata.TypeNumber,
		VisibleToRoles: []string{"admin"},
	})

	s := newTestSession(fields, "marketing")
	s.Initialize(map[string]any{"internalScore": 99})
	s.SetValue("name", "Acme renewal")

	payload, err := s.Submit(ctx, func(context.Context, map[string]any) error { return nil })
	require.NoError(t, err)

	_, present := payload["internalScore"]
	assert.False(t, present)
	assert.Contains(t, payload, "name")
}

func TestSession_AutoNumberStampedAtSubmit(t *testing.T) {
	ctx := context.Background()
	fields := []metadata.FieldDescriptor{
		{APIName: "name", Label: "Deal Name", FieldType: metadata.TypeText, IsRequired: true},
		{APIName: "dealNumber", Label: "Deal Number", FieldType: metadata.TypeAutoNumber},
	}

	types := NewTypeRegistry()
	s := NewSession(SessionConfig{
		Module:    "deals",
		Fields:    fields,
		Validator: newTestValidator(),
		Types:     types,
		AutoNumber: func(_ context.Context, field metadata.FieldDescriptor) (string, error) {
			assert.Equal(t, "dealNumber", field.APIName)
			return "DEAL-000042", nil
		},
	})
	s.Initialize(nil)
	s.SetValue("name", "Acme renewal")

	payload, err := s.Submit(ctx, func(context.Context, map[string]any) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "DEAL-000042", payload["dealNumber"])
}

func TestSession_ConditionalRequiredEndToEnd(t *testing.T) {
	ctx := context.Background()
	fields := []metadata.FieldDescriptor{
		{APIName: "accountMode", Label: "Account Mode", FieldType: metadata.TypeSelect,
			Options: []metadata.Option{
				{Value: "existing", Label: "Existing"},
				{Value: "create", Label: "Create new"},
			},
		},
		{APIName: "account", Label: "Account", FieldType: metadata.TypeReference,
			Validation: &metadata.Validation{
				ConditionalRequired: []metadata.Rule{
					{Field: "accountMode", Operator: metadata.OpEqual, Value: "existing"},
				},
			},
		},
	}

	s := newTestSession(fields, "")
	s.Initialize(nil)
	s.SetValue("accountMode", "existing")

	errs := s.ValidateAll(ctx)
	assert.Equal(t, "Account is required", errs["account"])

	s.SetValue("accountMode", "create")
	assert.Empty(t, s.ValidateAll(ctx))
}
