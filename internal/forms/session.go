package forms

import (
	"context"

	"crmforge/internal/core/apperror"
	"crmforge/internal/metadata"
	"crmforge/pkg/logger"
)

// SessionState tracks the lifecycle of one create/edit interaction.
//
//	Idle -> Editing (on any SetValue)
//	     -> Validating (on a submit attempt)
//	     -> Idle with errors | Submitted
//
// Submitted is terminal: a new session must be created for further edits.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateEditing    SessionState = "editing"
	StateValidating SessionState = "validating"
	StateSubmitted  SessionState = "submitted"
)

// AutoNumberFunc generates the next value for an auto_number field.
// Stamped at submit time when the draft value is still empty.
type AutoNumberFunc func(ctx context.Context, field metadata.FieldDescriptor) (string, error)

// SubmitFunc is the caller-supplied record-store callback. The session
// awaits it and propagates its error verbatim; it performs no network I/O
// of its own.
type SubmitFunc func(ctx context.Context, payload map[string]any) error

// Session orchestrates one create/edit interaction over an ordered field
// list: it builds default values, tracks edits, re-validates and produces
// the normalized submission payload.
//
// A session is single-interaction state, driven by discrete user input
// events; it is not safe for concurrent mutation and is never shared.
type Session struct {
	module string
	fields []metadata.FieldDescriptor
	role   string

	validator  *Validator
	types      *TypeRegistry
	autoNumber AutoNumberFunc

	draft  map[string]any
	errors map[string]string

	state      SessionState
	submitting bool
	closed     bool
}

// SessionConfig assembles a session.
type SessionConfig struct {
	Module     string
	Fields     []metadata.FieldDescriptor // already ordered and layout-resolved
	Role       string                     // active user's role; "" for anonymous (public forms)
	Validator  *Validator
	Types      *TypeRegistry
	AutoNumber AutoNumberFunc // optional
}

// NewSession creates an idle session; call Initialize before use.
func NewSession(cfg SessionConfig) *Session {
	return &Session{
		module:     cfg.Module,
		fields:     cfg.Fields,
		role:       cfg.Role,
		validator:  cfg.Validator,
		types:      cfg.Types,
		autoNumber: cfg.AutoNumber,
		draft:      make(map[string]any),
		errors:     make(map[string]string),
		state:      StateIdle,
	}
}

// Initialize builds the draft value set. Per field, the value is the
// existing record's value if present, else the descriptor's default, else
// the type-appropriate empty value. Object-shaped existing values of
// select/reference fields are unwrapped to their bare id.
func (s *Session) Initialize(existing map[string]any) map[string]any {
	for _, field := range s.fields {
		value, ok := existing[field.APIName]
		switch {
		case ok:
			s.draft[field.APIName] = unwrapObjectValue(field, value)
		case field.DefaultValue != nil:
			s.draft[field.APIName] = field.DefaultValue
		default:
			s.draft[field.APIName] = s.types.Lookup(field.FieldType).EmptyValue()
		}
	}
	return s.Values()
}

// SetValue records an edit and clears any previously stored error for the
// field. Errors are re-computed on the next validate pass, not per
// keystroke, so a fixed field stops showing a stale message immediately.
func (s *Session) SetValue(apiName string, value any) {
	if s.state == StateSubmitted {
		return
	}
	s.draft[apiName] = value
	delete(s.errors, apiName)
	s.state = StateEditing
}

// Value returns the current draft value for a field.
func (s *Session) Value(apiName string) any { return s.draft[apiName] }

// Values returns a copy of the draft value set.
func (s *Session) Values() map[string]any {
	out := make(map[string]any, len(s.draft))
	for k, v := range s.draft {
		out[k] = v
	}
	return out
}

// Errors returns a copy of the current error map.
func (s *Session) Errors() map[string]string {
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// State returns the session state.
func (s *Session) State() SessionState { return s.state }

// ValidateAll validates the latest draft snapshot and stores the resulting
// error map on the session.
func (s *Session) ValidateAll(ctx context.Context) map[string]string {
	s.errors = s.validator.ValidateAll(ctx, s.fields, s.draft, s.role)
	return s.Errors()
}

// Submit validates, normalizes and hands the payload to the caller-supplied
// callback.
//
// A validation failure refuses the submission and returns the aggregated
// field errors without ever invoking the callback. A callback failure is
// propagated verbatim and the draft is preserved so the user loses nothing.
// On success the session becomes Submitted (terminal).
//
// If the session was closed while the callback was in flight, its result is
// ignored: the interaction is already torn down and must not mutate state.
func (s *Session) Submit(ctx context.Context, submit SubmitFunc) (map[string]any, error) {
	if s.state == StateSubmitted {
		return nil, apperror.NewSessionSubmitted()
	}
	if s.submitting {
		return nil, apperror.NewConflict("submission already in progress")
	}

	s.state = StateValidating
	if errs := s.ValidateAll(ctx); len(errs) > 0 {
		s.state = StateIdle
		return nil, apperror.NewFieldErrors(errs)
	}

	payload, err := s.buildPayload(ctx)
	if err != nil {
		s.state = StateIdle
		return nil, err
	}

	s.submitting = true
	err = submit(ctx, payload)
	s.submitting = false

	if s.closed {
		// Torn down mid-flight; swallow the outcome, log for operators.
		logger.Debug(ctx, "submit completed after session teardown",
			"module", s.module, "failed", err != nil)
		return nil, nil
	}

	if err != nil {
		s.state = StateIdle
		return nil, err
	}

	s.state = StateSubmitted
	return payload, nil
}

// Close tears the session down: the draft is discarded (no autosave) and a
// still-in-flight submit result will be ignored.
func (s *Session) Close() {
	s.closed = true
	if s.state != StateSubmitted {
		s.state = StateIdle
	}
}

// buildPayload produces the normalized submission payload: visible fields
// only, numeric types coerced to real numbers, auto_number fields stamped,
// everything else passed through unchanged.
func (s *Session) buildPayload(ctx context.Context) (map[string]any, error) {
	payload := make(map[string]any, len(s.fields))
	for _, field := range s.fields {
		if !metadata.IsVisible(field, s.role) {
			continue
		}
		value := s.draft[field.APIName]

		if field.FieldType == metadata.TypeAutoNumber && metadata.IsEmptyValue(value) && s.autoNumber != nil {
			number, err := s.autoNumber(ctx, field)
			if err != nil {
				return nil, apperror.NewSubmission(s.module, err)
			}
			value = number
			s.draft[field.APIName] = number
		}

		if !metadata.IsEmptyValue(value) && field.FieldType.IsNumeric() {
			value = s.types.Lookup(field.FieldType).NormalizeValue(field, value)
		}

		payload[field.APIName] = value
	}
	return payload, nil
}

// unwrapObjectValue reduces an object-shaped existing value of a
// select/reference field to its id, trying _id, then id, then value.
func unwrapObjectValue(field metadata.FieldDescriptor, value any) any {
	if field.FieldType != metadata.TypeSelect && !field.FieldType.IsReference() {
		return value
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return value
	}
	for _, key := range []string{"_id", "id", "value"} {
		if v, present := obj[key]; present && v != nil {
			return v
		}
	}
	return value
}
