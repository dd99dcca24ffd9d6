// Package metadata_repo provides the PostgreSQL metadata store: tenant
// custom field definitions, layouts and form definitions. It implements
// metadata.Source for reads; the schema cache sits in front of it.
//
// Definitions are stored as JSONB documents and normalized on read, so
// legacy-shaped field definitions load the same way fresh ones do.
package metadata_repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"crmforge/internal/core/apperror"
	"crmforge/internal/core/id"
	"crmforge/internal/infrastructure/storage/postgres"
	"crmforge/internal/metadata"
	"crmforge/pkg/logger"
)

// Repo reads and writes tenant metadata. The module registry supplies
// system fields; only custom fields live in the database.
type Repo struct {
	registry *metadata.Registry
}

func New(registry *metadata.Registry) *Repo {
	return &Repo{registry: registry}
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

type fieldRow struct {
	Module     string `db:"module"`
	APIName    string `db:"api_name"`
	Definition []byte `db:"definition"`
}

// GetFieldsForModule returns system fields from the registry and custom
// fields from storage, both normalized. A row whose definition does not
// decode is logged and skipped; one broken field never takes the module
// down.
func (r *Repo) GetFieldsForModule(ctx context.Context, module string) (system, custom []metadata.FieldDescriptor, err error) {
	system = r.registry.SystemFields(module)

	q := r.builder().
		Select("module", "api_name", "definition").
		From("custom_fields").
		Where(squirrel.Eq{"module": module}).
		OrderBy("api_name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build query: %w", err)
	}

	var rows []fieldRow
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return nil, nil, fmt.Errorf("load custom fields: %w", err)
	}

	for _, row := range rows {
		var raw metadata.RawField
		if err := json.Unmarshal(row.Definition, &raw); err != nil {
			logger.Warn(ctx, "custom field definition does not decode, skipping",
				"module", module, "apiName", row.APIName, "error", err)
			continue
		}
		custom = append(custom, metadata.Normalize(raw, true))
	}
	return system, custom, nil
}

// CreateField stores a new custom field definition.
func (r *Repo) CreateField(ctx context.Context, module string, raw metadata.RawField) (metadata.FieldDescriptor, error) {
	field := metadata.Normalize(raw, true)
	definition, err := json.Marshal(raw)
	if err != nil {
		return field, fmt.Errorf("encode field definition: %w", err)
	}

	q := r.builder().
		Insert("custom_fields").
		SetMap(map[string]any{
			"module":     module,
			"api_name":   field.APIName,
			"definition": definition,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return field, fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return field, fmt.Errorf("insert custom field: %w", err)
	}
	return field, nil
}

// UpdateField replaces a custom field definition. The api name and field
// type are immutable; an attempt to change either is rejected.
func (r *Repo) UpdateField(ctx context.Context, module, apiName string, raw metadata.RawField) (metadata.FieldDescriptor, error) {
	updated := metadata.Normalize(raw, true)
	if updated.APIName != apiName {
		return updated, apperror.NewFieldImmutable(apiName, "apiName")
	}

	existing, err := r.getField(ctx, module, apiName)
	if err != nil {
		return updated, err
	}
	if existing.FieldType != updated.FieldType {
		return updated, apperror.NewFieldImmutable(apiName, "fieldType")
	}

	definition, err := json.Marshal(raw)
	if err != nil {
		return updated, fmt.Errorf("encode field definition: %w", err)
	}

	q := r.builder().
		Update("custom_fields").
		Set("definition", definition).
		Where(squirrel.Eq{"module": module}).
		Where(squirrel.Eq{"api_name": apiName})

	sql, args, err := q.ToSql()
	if err != nil {
		return updated, fmt.Errorf("build update: %w", err)
	}
	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return updated, fmt.Errorf("update custom field: %w", err)
	}
	if result.RowsAffected() == 0 {
		return updated, apperror.NewNotFound("field", apiName)
	}
	return updated, nil
}

// DeleteField removes a custom field definition. Record values keyed by the
// field stay in place and become orphaned data.
func (r *Repo) DeleteField(ctx context.Context, module, apiName string) error {
	q := r.builder().
		Delete("custom_fields").
		Where(squirrel.Eq{"module": module}).
		Where(squirrel.Eq{"api_name": apiName})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete custom field: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("field", apiName)
	}
	return nil
}

func (r *Repo) getField(ctx context.Context, module, apiName string) (metadata.FieldDescriptor, error) {
	q := r.builder().
		Select("module", "api_name", "definition").
		From("custom_fields").
		Where(squirrel.Eq{"module": module}).
		Where(squirrel.Eq{"api_name": apiName}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return metadata.FieldDescriptor{}, fmt.Errorf("build query: %w", err)
	}

	var row fieldRow
	if err := pgxscan.Get(ctx, r.querier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return metadata.FieldDescriptor{}, apperror.NewNotFound("field", apiName)
		}
		return metadata.FieldDescriptor{}, fmt.Errorf("get custom field: %w", err)
	}

	var raw metadata.RawField
	if err := json.Unmarshal(row.Definition, &raw); err != nil {
		return metadata.FieldDescriptor{}, fmt.Errorf("decode field definition: %w", err)
	}
	return metadata.Normalize(raw, true), nil
}

type layoutRow struct {
	Definition []byte `db:"definition"`
}

// GetActiveLayout returns the active layout for module + view type, or nil
// when none is configured.
func (r *Repo) GetActiveLayout(ctx context.Context, module string, viewType metadata.ViewType) (*metadata.Layout, error) {
	q := r.builder().
		Select("definition").
		From("layouts").
		Where(squirrel.Eq{"module": module}).
		Where(squirrel.Eq{"view_type": string(viewType)}).
		Where(squirrel.Eq{"is_active": true}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row layoutRow
	if err := pgxscan.Get(ctx, r.querier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get layout: %w", err)
	}

	var layout metadata.Layout
	if err := json.Unmarshal(row.Definition, &layout); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	layout.Module = module
	layout.ViewType = viewType
	return &layout, nil
}

// SaveLayout upserts a layout and activates it for its module + view type.
func (r *Repo) SaveLayout(ctx context.Context, layout metadata.Layout) error {
	definition, err := json.Marshal(layout)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}

	// Deactivate the current layout, then insert the new active one.
	deact := r.builder().
		Update("layouts").
		Set("is_active", false).
		Where(squirrel.Eq{"module": layout.Module}).
		Where(squirrel.Eq{"view_type": string(layout.ViewType)})

	sql, args, err := deact.ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("deactivate layout: %w", err)
	}

	ins := r.builder().
		Insert("layouts").
		SetMap(map[string]any{
			"id":         id.New(),
			"module":     layout.Module,
			"view_type":  string(layout.ViewType),
			"definition": definition,
			"is_active":  true,
		})

	sql, args, err = ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert layout: %w", err)
	}
	return nil
}

type formRow struct {
	ID         string `db:"id"`
	Definition []byte `db:"definition"`
}

// GetFormDefinition returns a named form definition for the module.
func (r *Repo) GetFormDefinition(ctx context.Context, module, formID string) (*metadata.FormDefinition, error) {
	q := r.builder().
		Select("id", "definition").
		From("form_definitions").
		Where(squirrel.Eq{"module": module}).
		Where(squirrel.Eq{"id": formID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row formRow
	if err := pgxscan.Get(ctx, r.querier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("form", formID)
		}
		return nil, fmt.Errorf("get form definition: %w", err)
	}

	var form metadata.FormDefinition
	if err := json.Unmarshal(row.Definition, &form); err != nil {
		return nil, fmt.Errorf("decode form definition: %w", err)
	}
	form.ID = row.ID
	form.Module = module
	return &form, nil
}

// SaveFormDefinition upserts a form definition.
func (r *Repo) SaveFormDefinition(ctx context.Context, form metadata.FormDefinition) error {
	definition, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("encode form definition: %w", err)
	}

	q := r.builder().
		Insert("form_definitions").
		SetMap(map[string]any{
			"id":         form.ID,
			"module":     form.Module,
			"definition": definition,
		}).
		Suffix("ON CONFLICT (id) DO UPDATE SET definition = EXCLUDED.definition")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("save form definition: %w", err)
	}
	return nil
}
