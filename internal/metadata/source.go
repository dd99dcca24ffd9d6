package metadata

import "context"

// Source is the read-only metadata collaborator: it supplies field
// descriptors, layouts and form definitions per module. Implementations are
// the postgres metadata repository and the schema cache wrapping it.
//
// A failure to load metadata must surface as a MetadataFetch error — the
// engine never guesses a schema or renders a partial form.
type Source interface {
	// GetFieldsForModule returns the module's system and custom fields,
	// already normalized.
	GetFieldsForModule(ctx context.Context, module string) (system, custom []FieldDescriptor, err error)

	// GetActiveLayout returns the active layout for module + view type,
	// or nil when none is configured.
	GetActiveLayout(ctx context.Context, module string, viewType ViewType) (*Layout, error)

	// GetFormDefinition returns a named form definition for the module.
	GetFormDefinition(ctx context.Context, module, formID string) (*FormDefinition, error)
}
