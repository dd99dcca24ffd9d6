package dto

import (
	"crmforge/internal/metadata"
)

// FormDescriptorResponse is everything a client needs to render a form:
// the ordered, role-visible field list plus initial values.
type FormDescriptorResponse struct {
	Module        string                     `json:"module"`
	Fields        []metadata.FieldDescriptor `json:"fields"`
	InitialValues map[string]any             `json:"initialValues"`
	Settings      *metadata.FormSettings     `json:"settings,omitempty"`
}

// SubmitFormRequest carries the draft values of a form submission.
type SubmitFormRequest struct {
	Values map[string]any `json:"values" binding:"required"`
}

// SubmitFormResponse reports a successful submission.
type SubmitFormResponse struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

// FieldErrorsResponse lists per-field validation messages keyed by apiName.
type FieldErrorsResponse struct {
	Errors map[string]string `json:"errors"`
}

// --- Reference typeahead ---

// ReferenceSearchRequest is the typeahead query for a reference field.
type ReferenceSearchRequest struct {
	Query string `form:"q"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

// ReferenceOptionResponse is one typeahead suggestion.
type ReferenceOptionResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
