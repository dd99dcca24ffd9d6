package metadata

// IsVisible reports whether the given role may see/edit the field.
//
// An empty VisibleToRoles list means visible to all roles. A non-empty list
// is an allow-list; an empty role (anonymous user, public forms) never passes
// a non-empty allow-list. Applied uniformly at rendering, submission
// validation and detail display.
func IsVisible(field FieldDescriptor, role string) bool {
	if len(field.VisibleToRoles) == 0 {
		return true
	}
	if role == "" {
		return false
	}
	for _, allowed := range field.VisibleToRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// IsVisibleForAny reports whether any of the user's roles may see the field.
func IsVisibleForAny(field FieldDescriptor, roles []string) bool {
	if len(field.VisibleToRoles) == 0 {
		return true
	}
	for _, role := range roles {
		if IsVisible(field, role) {
			return true
		}
	}
	return false
}

// IsVisibleOnDetail applies the read-only detail view rule on top of role
// visibility: empty non-required custom fields are hidden, required or
// non-empty ones are always shown.
func IsVisibleOnDetail(field FieldDescriptor, value any, role string) bool {
	if !IsVisible(field, role) {
		return false
	}
	if field.IsCustom && !field.IsRequired && IsEmptyValue(value) {
		return false
	}
	return true
}

// IsEmptyValue reports whether value counts as "empty" for requirement and
// detail-visibility purposes: nil, empty string, or empty slice.
func IsEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// VisibleFields filters an ordered field list down to those the role may see.
// Order is preserved.
func VisibleFields(fields []FieldDescriptor, role string) []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(fields))
	for _, f := range fields {
		if IsVisible(f, role) {
			out = append(out, f)
		}
	}
	return out
}
